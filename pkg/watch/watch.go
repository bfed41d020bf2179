// Package watch notices changes made to a local root by other programs so
// the tree can be rebuilt.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
	"github.com/mattsolo1/grove-casebook/pkg/handle/osfs"
)

const DefaultDebounce = 250 * time.Millisecond

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(w *Watcher) { w.log = l }
}

// Watcher watches every visible directory below a local root.
type Watcher struct {
	fw       *fsnotify.Watcher
	base     string
	debounce time.Duration
	log      logrus.FieldLogger
}

// New starts watching root and all of its non-hidden subdirectories.
func New(ctx context.Context, root *osfs.Dir, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		fw:       fw,
		base:     root.Location(),
		debounce: DefaultDebounce,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.WithField("component", "watch")

	if err := w.addTree(ctx, root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(ctx context.Context, dir *osfs.Dir) error {
	if err := w.fw.Add(dir.Location()); err != nil {
		return fmt.Errorf("watch %s: %w", dir.Location(), err)
	}
	entries, err := dir.Entries(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		sub, ok := e.Handle.(*osfs.Dir)
		if !ok || e.Handle.Kind() != handle.KindDirectory || strings.HasPrefix(e.Name, ".") {
			continue
		}
		if err := w.addTree(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

// hidden reports whether p lies in or is a dot-prefixed entry below base.
func (w *Watcher) hidden(p string) bool {
	rel, err := filepath.Rel(w.base, p)
	if err != nil {
		return true
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") && seg != "." {
			return true
		}
	}
	return false
}

// relevant handles bookkeeping for one event and reports whether it should
// trigger a refresh.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if w.hidden(ev.Name) {
		return false
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
			if err := w.addNew(ev.Name); err != nil {
				w.log.WithError(err).WithField("path", ev.Name).Warn("Cannot watch new directory")
			}
		}
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// addNew watches a directory created after New, with whatever it already
// contains.
func (w *Watcher) addNew(dir string) error {
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fw.Add(p)
	})
}

// Run delivers changes to onChange until ctx is done. Bursts of events are
// coalesced: onChange runs once the tree has been quiet for the debounce
// interval.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	defer w.fw.Close()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				w.log.WithField("event", ev.String()).Debug("Change detected")
				pending = time.After(w.debounce)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("Watcher error")
		case <-pending:
			pending = nil
			onChange()
		}
	}
}

// Close stops watching. It is only needed when Run was never started.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
