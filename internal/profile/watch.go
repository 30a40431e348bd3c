package profile

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadSettle coalesces the burst of events editors emit for one save.
const reloadSettle = 100 * time.Millisecond

// Reload is the result of re-reading a watched profile.
type Reload struct {
	Profile  Profile
	Warnings []Warning
	Err      error
}

// Watch re-reads path whenever it is written, created or renamed into place
// and sends the result on the returned channel. The parent directory is
// watched so that editors replacing the file atomically are seen. The channel
// closes when ctx is done.
func Watch(ctx context.Context, path string) (<-chan Reload, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch profile: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch profile: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch profile: %w", err)
	}

	out := make(chan Reload, 1)
	go func() {
		defer close(out)
		defer watcher.Close()

		var settle <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				settle = time.After(reloadSettle)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[profile] watch error: %v", err)
			case <-settle:
				settle = nil
				p, warnings, err := Load(ctx, abs)
				if err != nil {
					log.Printf("[profile] reload %s failed: %v", abs, err)
				} else {
					log.Printf("[profile] reloaded %s (%d phrases)", abs, len(p.Animation.Phrases))
				}
				select {
				case out <- Reload{Profile: p, Warnings: warnings, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
