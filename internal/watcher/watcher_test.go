package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects delivered events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) seen(path string) bool {
	for _, e := range r.snapshot() {
		if e.Path == path {
			return true
		}
	}
	return false
}

func newTestWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestNew_Defaults(t *testing.T) {
	w := newTestWatcher(t)
	assert.Equal(t, DefaultDebounce, w.debounce)
	assert.False(t, w.IsRunning())
	assert.Empty(t, w.WatchedFiles())
}

func TestNew_WithOptions(t *testing.T) {
	w := newTestWatcher(t, WithDebounce(0), WithDebounce(-time.Second))
	assert.Equal(t, time.Duration(0), w.debounce)
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.String())
	}
}

func TestConvertOp(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want Operation
	}{
		{fsnotify.Write, OpWrite},
		{fsnotify.Create, OpCreate},
		{fsnotify.Create | fsnotify.Write, OpCreate},
		{fsnotify.Remove, OpRemove},
		{fsnotify.Rename, OpRename},
		{fsnotify.Chmod, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, convertOp(tt.op), tt.op.String())
	}
}

func TestWatcher_WatchUnwatch(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.cfg")
	b := filepath.Join(dir, "b.cfg")
	require.NoError(t, os.WriteFile(a, []byte("x = 1\n"), 0o644))

	w := newTestWatcher(t)

	require.NoError(t, w.Watch(a))
	require.NoError(t, w.Watch(a))
	require.NoError(t, w.Watch(b), "missing file in an existing directory")
	assert.Equal(t, []string{a, b}, w.WatchedFiles())
	assert.Equal(t, 2, w.dirs[dir])

	require.NoError(t, w.Unwatch(a))
	assert.Equal(t, []string{b}, w.WatchedFiles())
	assert.Equal(t, 1, w.dirs[dir])

	require.NoError(t, w.Unwatch(b))
	assert.Empty(t, w.dirs)

	require.ErrorIs(t, w.Unwatch(b), ErrNotWatching)
	require.Error(t, w.Watch(filepath.Join(dir, "missing", "c.cfg")))
}

func TestWatcher_StartStop(t *testing.T) {
	w := newTestWatcher(t)

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsRunning())
	require.ErrorIs(t, w.Start(context.Background()), ErrAlreadyRunning)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())

	require.ErrorIs(t, w.Start(context.Background()), ErrClosed)
	require.ErrorIs(t, w.Watch("x.cfg"), ErrClosed)
}

func TestWatcher_DetectsWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.cfg")
	other := filepath.Join(dir, "other.cfg")
	require.NoError(t, os.WriteFile(path, []byte("a = 1\n"), 0o644))

	w := newTestWatcher(t, WithDebounce(20*time.Millisecond))
	rec := &recorder{}
	w.OnChange(rec.handle)
	require.NoError(t, w.Watch(path))
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(other, []byte("b = 2\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("a = 2\n"), 0o644))

	require.Eventually(t, func() bool { return rec.seen(path) }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, rec.seen(other))
}

func TestWatcher_DetectsAtomicSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.cfg")
	require.NoError(t, os.WriteFile(path, []byte("a = 1\n"), 0o644))

	w := newTestWatcher(t, WithDebounce(20*time.Millisecond))
	rec := &recorder{}
	w.OnChange(rec.handle)
	require.NoError(t, w.Watch(path))
	require.NoError(t, w.Start(context.Background()))

	tmp := filepath.Join(dir, ".app.cfg.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("a = 2\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool { return rec.seen(path) }, 2*time.Second, 10*time.Millisecond)
	events := rec.snapshot()
	assert.Equal(t, OpCreate, events[len(events)-1].Op)
}

func TestWatcher_ContextCancelStopsDelivery(t *testing.T) {
	w := newTestWatcher(t, WithDebounce(0))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loops did not exit after cancel")
	}
}

func TestWatcher_QueueEventCoalescing(t *testing.T) {
	tests := []struct {
		name string
		ops  []Operation
		want Operation
	}{
		{"write only", []Operation{OpWrite, OpWrite}, OpWrite},
		{"create then write", []Operation{OpCreate, OpWrite}, OpCreate},
		{"write then create", []Operation{OpWrite, OpCreate}, OpCreate},
		{"write then remove", []Operation{OpWrite, OpRemove}, OpRemove},
		{"remove then write", []Operation{OpRemove, OpWrite}, OpRemove},
		{"remove then create", []Operation{OpRemove, OpCreate}, OpCreate},
		{"rename then create", []Operation{OpRename, OpCreate, OpWrite}, OpCreate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWatcher(t)
			base := time.Now()
			for i, op := range tt.ops {
				w.queueEvent(Event{Path: "/x/app.cfg", Op: op, Time: base.Add(time.Duration(i) * time.Millisecond)})
			}
			require.Len(t, w.pending, 1)
			assert.Equal(t, tt.want, w.pending["/x/app.cfg"].Op)
		})
	}
}

func TestWatcher_FlushPending(t *testing.T) {
	w := newTestWatcher(t, WithDebounce(50*time.Millisecond))
	rec := &recorder{}
	w.OnChange(rec.handle)

	now := time.Now()
	w.queueEvent(Event{Path: "/x/old.cfg", Op: OpWrite, Time: now.Add(-time.Second)})
	w.queueEvent(Event{Path: "/x/new.cfg", Op: OpWrite, Time: now})

	w.flushPending(now)

	events := rec.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "/x/old.cfg", events[0].Path)
	assert.Contains(t, w.pending, "/x/new.cfg")

	w.flushPending(now.Add(time.Second))
	assert.Len(t, rec.snapshot(), 2)
	assert.Empty(t, w.pending)
}

func TestWatcher_HandlerPanicRecovered(t *testing.T) {
	w := newTestWatcher(t)
	rec := &recorder{}
	w.OnChange(func(Event) { panic("boom") })
	w.OnChange(rec.handle)

	assert.NotPanics(t, func() {
		w.emitEvent(Event{Path: "/x/app.cfg", Op: OpWrite, Time: time.Now()})
	})
	assert.Len(t, rec.snapshot(), 1)
}
