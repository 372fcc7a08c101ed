package lazy

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Get(t *testing.T) {
	var calls int
	v := Of(func() string {
		calls++
		return "cached"
	})

	assert.False(t, v.Loaded())
	assert.Equal(t, "cached", v.MustGet())
	assert.Equal(t, "cached", v.MustGet())
	assert.Equal(t, 1, calls)
	assert.True(t, v.Loaded())
}

func TestValue_SetAndReset(t *testing.T) {
	var calls int
	v := Of(func() string {
		calls++
		return "computed"
	})

	// Setting before first access skips computation.
	v.Set("saved")
	assert.Equal(t, "saved", v.MustGet())
	assert.Equal(t, 0, calls)

	// Reset forces recomputation on the next access.
	v.Reset()
	assert.False(t, v.Loaded())
	assert.Equal(t, "computed", v.MustGet())
	assert.Equal(t, 1, calls)

	// Resetting an unpopulated value is a no-op.
	v.Reset()
	v.Reset()
	assert.Equal(t, "computed", v.MustGet())
	assert.Equal(t, 2, calls)
}

func TestValue_ErrorNotCached(t *testing.T) {
	fail := true
	v := New(func() (int, error) {
		if fail {
			return 0, errors.New("boom")
		}
		return 7, nil
	})

	_, err := v.Get()
	require.Error(t, err)
	assert.False(t, v.Loaded())

	fail = false
	got, err := v.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	assert.Panics(t, func() {
		New(func() (int, error) { return 0, errors.New("x") }).MustGet()
	})
}

func TestValue_ConcurrentFirstAccess(t *testing.T) {
	var calls atomic.Int32
	start := make(chan struct{})
	v := Of(func() int {
		<-start
		calls.Add(1)
		return 42
	})

	const goroutines = 50
	var wg sync.WaitGroup
	results := make([]int, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = v.MustGet()
		}(i)
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, 42, r)
	}
}

func TestValue_Peek(t *testing.T) {
	v := Of(func() int { return 1 })

	_, ok := v.Peek()
	assert.False(t, ok)

	v.MustGet()
	got, ok := v.Peek()
	assert.True(t, ok)
	assert.Equal(t, 1, got)
}
