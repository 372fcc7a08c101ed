package settings

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFS counts ReadFile calls.
type countingFS struct {
	FileSystem
	reads atomic.Int64
}

func (c *countingFS) ReadFile(path string) ([]byte, error) {
	c.reads.Add(1)
	return c.FileSystem.ReadFile(path)
}

func newCountingCache(t *testing.T, files map[string]string) (*Cache, *countingFS, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(mem, path, []byte(content), 0o644))
	}
	cfs := &countingFS{FileSystem: NewAferoFS(mem)}
	c, err := NewCache(NewLoader(WithFS(cfs)), 4)
	require.NoError(t, err)
	return c, cfs, mem
}

func TestCache_Load(t *testing.T) {
	c, cfs, _ := newCountingCache(t, map[string]string{
		"/c/base.cfg": "a = 1\n",
		"/c/app.cfg":  "extends = base.cfg\nb = 2\n",
	})

	first, err := c.Load("/c/app.cfg")
	require.NoError(t, err)
	second, err := c.Load("/c/./app.cfg")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(2), cfs.reads.Load())

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 4, stats.MaxSize)
	assert.Equal(t, 1, c.Len())
}

func TestCache_Load_Concurrent(t *testing.T) {
	c, cfs, _ := newCountingCache(t, map[string]string{"/c/app.cfg": "a = 1\n"})

	var wg sync.WaitGroup
	results := make([]*Settings, 32)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := c.Load("/c/app.cfg")
			assert.NoError(t, err)
			results[i] = s
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), cfs.reads.Load())
	for _, s := range results {
		assert.Same(t, results[0], s)
	}
}

func TestCache_FailuresNotCached(t *testing.T) {
	c, _, mem := newCountingCache(t, nil)

	_, err := c.Load("/c/late.cfg")
	require.ErrorIs(t, err, ErrFileNotFound)
	assert.Equal(t, 0, c.Len())

	require.NoError(t, afero.WriteFile(mem, "/c/late.cfg", []byte("a = 1\n"), 0o644))

	s, err := c.Load("/c/late.cfg")
	require.NoError(t, err)
	assert.Equal(t, "1", s.Get("a"))
}

func TestCache_Invalidate(t *testing.T) {
	c, _, mem := newCountingCache(t, map[string]string{
		"/c/base.cfg":  "a = 1\n",
		"/c/app.cfg":   "extends = base.cfg\n",
		"/c/other.cfg": "b = 2\n",
	})

	_, err := c.Load("/c/app.cfg")
	require.NoError(t, err)
	_, err = c.Load("/c/other.cfg")
	require.NoError(t, err)
	_, err = c.Load("/c/base.cfg")
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	require.NoError(t, afero.WriteFile(mem, "/c/base.cfg", []byte("a = 9\n"), 0o644))

	assert.Equal(t, 2, c.Invalidate("/c/base.cfg"))
	assert.Equal(t, 1, c.Len())

	s, err := c.Load("/c/app.cfg")
	require.NoError(t, err)
	assert.Equal(t, "9", s.Get("a"))

	assert.Equal(t, 0, c.Invalidate("/c/unrelated.cfg"))

	c.Purge()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, uint64(0), c.Stats().Misses)
}

func TestCache_Eviction(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		files["/c/"+name+".cfg"] = "k = " + name + "\n"
	}
	c, _, _ := newCountingCache(t, files)

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		_, err := c.Load("/c/" + name + ".cfg")
		require.NoError(t, err)
	}
	assert.Equal(t, 4, c.Len())
}
