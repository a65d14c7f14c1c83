package adblock

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"adfilter/logger"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// fileWatcher calls onChange after any of the tracked files was written,
// created or renamed. Bursts of events within watchDebounce trigger one call.
type fileWatcher struct {
	watcher  *fsnotify.Watcher
	onChange func()

	mu    sync.Mutex
	files map[string]struct{}
	dirs  map[string]struct{}
	timer *time.Timer
}

func newFileWatcher(onChange func()) (*fileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	return &fileWatcher{
		watcher:  w,
		onChange: onChange,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
	}, nil
}

// Add starts tracking name. The parent directory is watched instead of the
// file itself so that editors replacing the file are still noticed.
func (fw *fileWatcher) Add(name string) error {
	abs, err := filepath.Abs(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.files[abs] = struct{}{}
	if _, ok := fw.dirs[dir]; ok {
		return nil
	}
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("adding %q: %w", dir, err)
	}
	fw.dirs[dir] = struct{}{}
	return nil
}

func (fw *fileWatcher) tracked(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()
	_, ok := fw.files[abs]
	return ok
}

// Run handles events until ctx is done, then closes the watcher.
func (fw *fileWatcher) Run(ctx context.Context) {
	defer fw.watcher.Close()

	for {
		select {
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if fw.tracked(ev.Name) {
				logger.Debugf("[AdBlock] Rules file changed: %s", ev.Name)
				fw.schedule()
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("[AdBlock] File watcher error: %v", err)
		case <-ctx.Done():
			fw.mu.Lock()
			if fw.timer != nil {
				fw.timer.Stop()
			}
			fw.mu.Unlock()
			return
		}
	}
}

func (fw *fileWatcher) schedule() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(watchDebounce, fw.onChange)
}
