package monitor

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	defaultDebounceConstant     = 2 * time.Second
	watchErrorMessageConstant   = "file watcher reported an error"
	logFieldWatchedPathConstant = "path"
)

var ignoredDirectoryNames = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"vendor":       {},
	".venv":        {},
	"target":       {},
}

// FileTrigger emits a debounced event whenever files under a project root change.
type FileTrigger struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	events   chan struct{}
	done     chan struct{}
	logger   *zap.Logger

	closeOnce sync.Once
	waitGroup sync.WaitGroup
}

// NewFileTrigger watches every directory under root except dependency and VCS directories.
func NewFileTrigger(root string, debounce time.Duration, logger *zap.Logger) (*FileTrigger, error) {
	watcher, watcherError := fsnotify.NewWatcher()
	if watcherError != nil {
		return nil, watcherError
	}
	if debounce <= 0 {
		debounce = defaultDebounceConstant
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if walkError := addWatchRecursive(watcher, root); walkError != nil {
		_ = watcher.Close()
		return nil, walkError
	}

	trigger := &FileTrigger{
		watcher:  watcher,
		debounce: debounce,
		events:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		logger:   logger,
	}
	trigger.waitGroup.Add(1)
	go trigger.forward()
	return trigger, nil
}

// Events delivers at most one pending change notification.
func (trigger *FileTrigger) Events() <-chan struct{} {
	return trigger.events
}

// Close stops watching.
func (trigger *FileTrigger) Close() error {
	var closeError error
	trigger.closeOnce.Do(func() {
		close(trigger.done)
		closeError = trigger.watcher.Close()
		trigger.waitGroup.Wait()
	})
	return closeError
}

func (trigger *FileTrigger) forward() {
	defer trigger.waitGroup.Done()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-trigger.done:
			return
		case event, open := <-trigger.watcher.Events:
			if !open {
				return
			}
			if event.Has(fsnotify.Create) {
				trigger.watchCreatedDirectory(event.Name)
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(trigger.debounce, trigger.signal)
		case watchError, open := <-trigger.watcher.Errors:
			if !open {
				return
			}
			trigger.logger.Warn(watchErrorMessageConstant, zap.Error(watchError))
		}
	}
}

func (trigger *FileTrigger) signal() {
	select {
	case trigger.events <- struct{}{}:
	default:
	}
}

func (trigger *FileTrigger) watchCreatedDirectory(path string) {
	if _, ignored := ignoredDirectoryNames[filepath.Base(path)]; ignored {
		return
	}
	if info, statError := os.Stat(path); statError != nil || !info.IsDir() {
		return
	}
	if addError := trigger.watcher.Add(path); addError != nil {
		trigger.logger.Debug(watchErrorMessageConstant, zap.String(logFieldWatchedPathConstant, path), zap.Error(addError))
	}
}

func addWatchRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkError error) error {
		if walkError != nil {
			if path == root {
				return walkError
			}
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if _, ignored := ignoredDirectoryNames[entry.Name()]; ignored && path != root {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
