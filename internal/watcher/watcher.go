// Package watcher reports changes made directly inside persisted project
// directories, outside of the HTTP API.
package watcher

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"sitebuilder-backend/internal/storage"
	"sitebuilder-backend/pkg/logger"
)

const DefaultBatchDelay = 500 * time.Millisecond

type Notifier interface {
	Notify(projectID, path string)
}

// Watcher watches <root>/<projectId>/... and forwards batched changes to a
// Notifier, one call per changed file.
type Watcher struct {
	root     string
	delay    time.Duration
	notifier Notifier

	fsw      *fsnotify.Watcher
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func New(root string, notifier Notifier, delay time.Duration) *Watcher {
	if delay <= 0 {
		delay = DefaultBatchDelay
	}
	return &Watcher{
		root:     root,
		delay:    delay,
		notifier: notifier,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	if err := w.addTree(w.root); err != nil {
		fsw.Close()
		return err
	}

	go w.watchLoop()
	logger.Infof("Watching project directory %s", w.root)
	return nil
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		if w.fsw == nil {
			return
		}
		close(w.stopChan)
		<-w.done
		w.fsw.Close()
	})
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			return w.fsw.Add(p)
		}
		return nil
	})
}

// split maps an absolute path to (projectID, project-relative path).
func (w *Watcher) split(name string) (string, string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil {
		return "", "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return "", "", false
	}
	projectID, filePath, ok := strings.Cut(rel, "/")
	if !ok || filePath == "" || strings.HasSuffix(filePath, storage.TempSuffix) {
		return "", "", false
	}
	return projectID, filePath, true
}

type change struct {
	projectID string
	path      string
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	updateTimer := time.NewTimer(w.delay)
	updateTimer.Stop()
	pending := make(map[change]bool)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// 新建目录需要加入监听
					if err := w.addTree(event.Name); err != nil {
						logger.Warnf("watch %s: %v", event.Name, err)
					}
					continue
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			projectID, filePath, ok := w.split(event.Name)
			if !ok {
				continue
			}
			pending[change{projectID: projectID, path: filePath}] = true

			updateTimer.Stop()
			updateTimer.Reset(w.delay)

		case <-updateTimer.C:
			for c := range pending {
				w.notifier.Notify(c.projectID, c.path)
			}
			pending = make(map[change]bool)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if !errors.Is(err, fsnotify.ErrEventOverflow) {
				logger.Errorf("Watcher error: %v", err)
			}

		case <-w.stopChan:
			return
		}
	}
}
