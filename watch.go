package wlf

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher purges compiled templates when view sources change. Includes and
// parents are not tracked per template, so any change drops every artifact.
type Watcher struct {
	engine *Engine
	dir    string
	delay  time.Duration
	fsw    *fsnotify.Watcher
	log    *slog.Logger
	// OnPurge is called after every purge with the changed paths
	OnPurge func(paths []string, err error)
}

// NewWatcher watches viewsDir recursively. Changes arriving within delay of
// each other cause a single purge.
func NewWatcher(e *Engine, viewsDir string, delay time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		engine: e,
		dir:    viewsDir,
		delay:  delay,
		fsw:    fsw,
		log:    e.log.With("component", "watcher"),
	}
	if err := w.addTree(viewsDir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(p)
		}
		return nil
	})
}

func isView(p string) bool {
	return slices.Contains(ValidFileExtensions, strings.ToLower(filepath.Ext(p)))
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		pending []string
		timer   *time.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if err := w.addTree(ev.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
					w.log.WarnContext(ctx, "watching new directory", "path", ev.Name, "error", err)
				}
			}
			if !isView(ev.Name) || (ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write)) {
				continue
			}
			pending = append(pending, ev.Name)
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			err := w.engine.Purge()
			if err != nil {
				w.log.WarnContext(ctx, "purging compiled templates", "error", err)
			} else {
				w.log.InfoContext(ctx, "views changed, compiled templates purged", "paths", pending)
			}
			if w.OnPurge != nil {
				w.OnPurge(pending, err)
			}
			pending = nil
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WarnContext(ctx, "watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
