package workflows

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

type watcher struct {
	fs   *fsnotify.Watcher
	stop chan struct{}
	done chan struct{}
}

// StartWatching reloads the catalog whenever its file changes. It is a no-op
// for the built-in catalog.
func (c *Catalog) StartWatching() error {
	if c.path == "" {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory so editors that save by rename are seen too.
	if err := fw.Add(filepath.Dir(c.path)); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch workflow catalog: %w", err)
	}

	w := &watcher{fs: fw, stop: make(chan struct{}), done: make(chan struct{})}
	c.mu.Lock()
	c.watcher = w
	c.mu.Unlock()

	go c.watchLoop(w)
	log.Printf("[Workflows] Watching catalog for changes: %s", c.path)
	return nil
}

func (c *Catalog) watchLoop(w *watcher) {
	defer close(w.done)

	var debounceTimer *time.Timer
	name := filepath.Base(c.path)

	for {
		select {
		case <-w.stop:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDebounce, func() {
				if err := c.Reload(); err != nil {
					log.Printf("[Workflows] Error reloading catalog: %v", err)
					return
				}
				log.Printf("[Workflows] Catalog reloaded (%d workflows)", len(c.List()))
			})
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("[Workflows] Watcher error: %v", err)
		}
	}
}

// StopWatching stops a watcher started by StartWatching.
func (c *Catalog) StopWatching() {
	c.mu.Lock()
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()
	if w == nil {
		return
	}
	close(w.stop)
	w.fs.Close()
	<-w.done
}
