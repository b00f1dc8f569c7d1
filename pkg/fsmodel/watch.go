package fsmodel

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/vanderheijden86/vtree/pkg/model"
	"github.com/vanderheijden86/vtree/pkg/tree"
)

// WatchOptions configures a Watcher.
type WatchOptions struct {
	ShowHidden bool
	Debounce   time.Duration // Default 200ms
	Logger     zerolog.Logger
}

// Watcher keeps the open directories of a tree in sync with the disk. Only
// open directories are watched: opening a directory adds an fsnotify watch,
// closing it removes the watch. Bursts of events are debounced; each changed
// directory is listed off the controller thread and the result is applied
// through the scheduler.
type Watcher struct {
	sched      tree.Scheduler
	watcher    *fsnotify.Watcher
	showHidden bool
	debounce   time.Duration
	log        zerolog.Logger

	// Controller thread only.
	entries  map[string]*Entry
	sub      model.Subscription
	onResync func(dir string)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewWatcher attaches a watcher to tr. Create it before the model is set so
// the root's open event is seen.
func NewWatcher(tr *tree.Tree, sched tree.Scheduler, opts WatchOptions) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 200 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		sched:      sched,
		watcher:    fw,
		showHidden: opts.ShowHidden,
		debounce:   opts.Debounce,
		log:        opts.Logger,
		entries:    make(map[string]*Entry),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	w.sub = tr.OnOpenChange(w.openChanged)

	go w.watchLoop()
	return w, nil
}

// OnResync registers fn, called on the controller thread after a directory
// listing was applied.
func (w *Watcher) OnResync(fn func(dir string)) {
	w.onResync = fn
}

// Watched returns the number of watched directories.
func (w *Watcher) Watched() int { return len(w.entries) }

// Close stops watching. It is idempotent.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		w.sub.Release()
		w.cancel()
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) openChanged(n model.Node, open bool) {
	e, ok := n.(*Entry)
	if !ok || !e.dir {
		return
	}
	if open {
		if _, watched := w.entries[e.path]; watched {
			return
		}
		if err := w.watcher.Add(e.path); err != nil {
			w.log.Warn().Err(err).Str("dir", e.path).Msg("cannot watch directory")
			return
		}
		w.entries[e.path] = e
		return
	}
	w.unwatch(e.path)
}

func (w *Watcher) unwatch(path string) {
	if _, ok := w.entries[path]; !ok {
		return
	}
	delete(w.entries, path)
	_ = w.watcher.Remove(path)
}

// unwatchTree drops the watches of path and everything below it.
func (w *Watcher) unwatchTree(path string) {
	prefix := path + string(filepath.Separator)
	for p := range w.entries {
		if p == path || strings.HasPrefix(p, prefix) {
			w.unwatch(p)
		}
	}
}

// watchLoop collects events per directory and lists each changed directory
// once the burst settles.
func (w *Watcher) watchLoop() {
	defer close(w.done)

	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Only listing changes matter (not writes or chmod)
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[filepath.Dir(event.Name)] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			}

		case <-fire:
			timer, fire = nil, nil
			for dir := range pending {
				w.relist(dir)
			}
			pending = make(map[string]bool)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Errors are logged but don't stop the watcher
			w.log.Warn().Err(err).Msg("filesystem watch error")
		}
	}
}

// relist reads dir and posts the result to the controller thread.
func (w *Watcher) relist(dir string) {
	listing, err := scan(dir, w.showHidden)
	if err != nil {
		// The directory itself went away; its parent's listing removes it.
		w.log.Debug().Err(err).Str("dir", dir).Msg("skipping resync")
		return
	}
	w.sched.Post(func() { w.apply(dir, listing) })
}

func (w *Watcher) apply(dir string, listing []dirent) {
	e, ok := w.entries[dir]
	if !ok || e.Disposed() {
		return
	}
	for _, r := range Resync(e, listing) {
		w.unwatchTree(r.path)
	}
	w.log.Debug().Str("dir", dir).Int("entries", len(listing)).Msg("directory resynced")
	if w.onResync != nil {
		w.onResync(dir)
	}
}
