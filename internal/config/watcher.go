package config

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StartWatcher monitors the config file and invokes onReload with the freshly
// parsed config whenever it changes. fsnotify is preferred; a slow polling
// loop covers filesystems where it cannot attach.
func StartWatcher(ctx context.Context, path string, onReload func(Config)) {
	reload := func() {
		cfg, err := Load(path)
		if err != nil {
			log.Printf("config: reload failed, keeping previous config: %v", err)
			return
		}
		onReload(cfg)
	}

	watcher, err := fsnotify.NewWatcher()
	usePolling := false
	if err != nil {
		log.Printf("config: fsnotify unavailable (%v), falling back to polling", err)
		usePolling = true
	} else if err := watcher.Add(path); err != nil {
		log.Printf("config: cannot watch %s (%v), falling back to polling", path, err)
		usePolling = true
		watcher.Close()
	}

	if !usePolling {
		go func() {
			defer watcher.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case event, ok := <-watcher.Events:
					if !ok {
						return
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						// Editors write in bursts; let the file settle.
						time.Sleep(100 * time.Millisecond)
						log.Printf("config: %s changed, reloading", path)
						reload()
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					log.Printf("config: watcher error: %v", err)
				}
			}
		}()
		return
	}

	go func() {
		var lastMod time.Time
		if fi, err := os.Stat(path); err == nil {
			lastMod = fi.ModTime()
		}

		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fi, err := os.Stat(path)
				if err != nil || !fi.ModTime().After(lastMod) {
					continue
				}
				lastMod = fi.ModTime()
				log.Printf("config: %s changed (poll), reloading", path)
				reload()
			}
		}
	}()
}
