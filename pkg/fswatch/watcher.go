// Package fswatch watches a directory tree recursively and coalesces bursts
// of filesystem events into single change notifications, which is the shape
// rebuild triggers want.
package fswatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

var (
	ErrWatcherClosed = errors.New("watcher closed")
	ErrDirNotExist   = errors.New("directory to watch does not exist")
)

const defaultDebounce = 200 * time.Millisecond

// IgnoreFunc filters paths out of change notifications. Ignored directories
// are still watched; their events are just dropped.
type IgnoreFunc func(path string) bool

type Watcher struct {
	root     string
	debounce time.Duration
	ignore   IgnoreFunc

	watcher *fsnotify.Watcher
	changes chan []string
}

func New(root string, ignore IgnoreFunc) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, ErrDirNotExist
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		debounce: defaultDebounce,
		ignore:   ignore,
		watcher:  fsw,
		changes:  make(chan []string, 4),
	}

	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Changes delivers debounced batches of changed paths.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Start pumps filesystem events until the context is cancelled. Newly
// created directories are watched automatically.
func (w *Watcher) Start(ctx context.Context) error {
	defer close(w.changes)

	var pending []string
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return ErrWatcherClosed
			}
			if !w.handleEvent(event) {
				continue
			}

			pending = append(pending, event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			batch := dedupe(pending)
			pending = nil
			fire = nil

			select {
			case w.changes <- batch:
			default:
				slog.Warn("dropped change batch: channel full", "count", len(batch))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			slog.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// handleEvent maintains recursive watches and reports whether the event is
// interesting enough to notify.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) {
		return false
	}

	if w.ignore != nil && w.ignore(event.Name) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				slog.Error("failed to watch new dir", "dir", event.Name, "error", err)
			}
		}
	} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if err := w.watcher.Remove(event.Name); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			slog.Debug("remove watch", "path", event.Name, "error", err)
		}
	}

	return true
}

func (w *Watcher) addRecursive(dir string) error {
	slog.Debug("watcher add", "dir", dir)
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("fsnotify add watch: %w", err)
			}
		}
		return nil
	})
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
