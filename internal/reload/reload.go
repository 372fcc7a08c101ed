// Package reload keeps a settings file loaded as it and its extends chain
// change on disk.
//
// A Reloader watches every file of the chain. When one changes the whole
// chain is reloaded and subscribers receive a Change describing the keys that
// differ. A failed reload keeps the last good settings and is reported to
// subscribers through Change.Err.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dshills/tangled/internal/settings"
	"github.com/dshills/tangled/internal/watcher"
)

// Change describes the outcome of one reload.
type Change struct {
	// Old is the settings before the reload.
	Old *settings.Settings

	// New is the settings after the reload. Equal to Old when Err is set.
	New *settings.Settings

	// Diff lists the keys that changed.
	Diff settings.Changes

	// Err is the load error, if the reload failed.
	Err error

	// Trigger is the file whose change caused the reload. Empty for Reload.
	Trigger string
}

// Touches reports whether key was added, modified or removed.
func (c Change) Touches(key string) bool {
	return slices.Contains(c.Diff.Added, key) ||
		slices.Contains(c.Diff.Modified, key) ||
		slices.Contains(c.Diff.Removed, key)
}

// Observer is called after a reload.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	reloader *Reloader
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.reloader != nil {
		s.reloader.unsubscribe(s.id)
	}
}

// Reloader keeps one settings file loaded.
type Reloader struct {
	path     string
	loader   *settings.Loader
	watcher  *watcher.Watcher
	debounce time.Duration
	logger   *slog.Logger

	reloadMu sync.Mutex

	mu           sync.RWMutex
	current      *settings.Settings
	observers    map[uint64]Observer
	keyObservers map[string]map[uint64]Observer
	nextID       uint64
}

// Option configures a Reloader.
type Option func(*Reloader)

// WithLoader sets the loader used for every load.
func WithLoader(l *settings.Loader) Option {
	return func(r *Reloader) {
		if l != nil {
			r.loader = l
		}
	}
}

// WithDebounce sets the watcher's quiet period.
func WithDebounce(d time.Duration) Option {
	return func(r *Reloader) {
		if d >= 0 {
			r.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reloader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New loads path and prepares to watch its extends chain.
// Call Start to begin watching.
func New(path string, opts ...Option) (*Reloader, error) {
	r := &Reloader{
		path:         path,
		loader:       settings.NewLoader(),
		debounce:     watcher.DefaultDebounce,
		logger:       slog.New(slog.DiscardHandler),
		observers:    make(map[uint64]Observer),
		keyObservers: make(map[string]map[uint64]Observer),
	}
	for _, opt := range opts {
		opt(r)
	}

	s, err := r.loader.Load(path)
	if err != nil {
		return nil, err
	}
	r.current = s
	r.path = s.File()

	w, err := watcher.New(watcher.WithDebounce(r.debounce), watcher.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}
	for _, f := range s.Files() {
		if err := w.Watch(f); err != nil {
			_ = w.Stop()
			return nil, fmt.Errorf("watching %s: %w", f, err)
		}
	}
	w.OnChange(func(e watcher.Event) {
		r.logger.Debug("settings file changed", "path", e.Path, "op", e.Op)
		r.reload(e.Path)
	})
	r.watcher = w

	return r, nil
}

// Start begins watching until ctx is done or Close is called.
func (r *Reloader) Start(ctx context.Context) error {
	return r.watcher.Start(ctx)
}

// Close stops watching.
func (r *Reloader) Close() error {
	return r.watcher.Stop()
}

// Current returns the last successfully loaded settings.
func (r *Reloader) Current() *settings.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// WatchedFiles returns the files being watched.
func (r *Reloader) WatchedFiles() []string {
	return r.watcher.WatchedFiles()
}

// Reload reloads immediately and notifies subscribers.
func (r *Reloader) Reload() Change {
	return r.reload("")
}

// Subscribe registers an observer for every reload, including failed ones.
func (r *Reloader) Subscribe(observer Observer) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.observers[id] = observer

	return &Subscription{id: id, reloader: r}
}

// SubscribeKey registers an observer for successful reloads that change key.
func (r *Reloader) SubscribeKey(key string, observer Observer) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	if r.keyObservers[key] == nil {
		r.keyObservers[key] = make(map[uint64]Observer)
	}
	r.keyObservers[key][id] = observer

	return &Subscription{id: id, reloader: r}
}

func (r *Reloader) unsubscribe(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.observers, id)
	for key, observers := range r.keyObservers {
		delete(observers, id)
		if len(observers) == 0 {
			delete(r.keyObservers, key)
		}
	}
}

func (r *Reloader) reload(trigger string) Change {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	old := r.Current()

	s, err := r.loader.Load(r.path)
	if err != nil {
		r.logger.Warn("reload failed, keeping previous settings", "path", r.path, "error", err)
		r.watchFailed(err)
		change := Change{Old: old, New: old, Err: err, Trigger: trigger}
		r.deliver(change)
		return change
	}

	r.retarget(r.watcher.WatchedFiles(), s.Files())

	r.mu.Lock()
	r.current = s
	r.mu.Unlock()

	change := Change{Old: old, New: s, Diff: settings.Diff(old, s), Trigger: trigger}
	if change.Diff.Empty() {
		r.logger.Debug("reload produced no changes", "path", r.path)
		return change
	}

	r.logger.Info("settings reloaded",
		"path", r.path,
		"added", len(change.Diff.Added),
		"modified", len(change.Diff.Modified),
		"removed", len(change.Diff.Removed),
	)
	r.deliver(change)
	return change
}

// watchFailed adds the file a failed load stopped at to the watch set, so
// creating or fixing it triggers another reload.
func (r *Reloader) watchFailed(err error) {
	path := settings.FailedPath(err)
	if path == "" || slices.Contains(r.watcher.WatchedFiles(), path) {
		return
	}
	if err := r.watcher.Watch(path); err != nil {
		r.logger.Warn("could not watch settings file", "path", path, "error", err)
	}
}

// retarget moves the watch set from one extends chain to another.
func (r *Reloader) retarget(oldFiles, newFiles []string) {
	for _, f := range newFiles {
		if !slices.Contains(oldFiles, f) {
			if err := r.watcher.Watch(f); err != nil {
				r.logger.Warn("could not watch settings file", "path", f, "error", err)
			}
		}
	}
	for _, f := range oldFiles {
		if !slices.Contains(newFiles, f) {
			if err := r.watcher.Unwatch(f); err != nil {
				r.logger.Warn("could not unwatch settings file", "path", f, "error", err)
			}
		}
	}
}

// deliver calls matching observers outside the lock.
func (r *Reloader) deliver(change Change) {
	r.mu.RLock()
	var observers []Observer
	for _, obs := range r.observers {
		observers = append(observers, obs)
	}
	if change.Err == nil {
		for key, keyObs := range r.keyObservers {
			if !change.Touches(key) {
				continue
			}
			for _, obs := range keyObs {
				observers = append(observers, obs)
			}
		}
	}
	r.mu.RUnlock()

	for _, obs := range observers {
		obs(change)
	}
}
