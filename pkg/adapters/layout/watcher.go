package layout

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch signals on the returned channel whenever the layout file is written,
// debounced so an editor's burst of writes produces one signal. It stops when ctx is done.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	// Editors often replace the file, so the directory is watched rather than the file.
	dir := filepath.Dir(l.path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching directory %s: %w", dir, err)
	}

	out := make(chan struct{}, 1)
	go l.loop(ctx, fsw, out)
	return out, nil
}

func (l *Loader) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- struct{}) {
	defer fsw.Close()
	defer close(out)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !l.isRelevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(l.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(l.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case out <- struct{}{}:
			default:
			}

		case _, ok := <-fsw.Errors:
			if !ok {
				return
			}

		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (l *Loader) isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Clean(event.Name) == filepath.Clean(l.path)
}
