//go:build !js
// +build !js

package main

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/simukka/sound-healing/audio"
	"github.com/simukka/sound-healing/catalog"
)

// Watcher reports when watched files settle after a burst of changes.
type Watcher struct {
	watcher *fsnotify.Watcher
	match   func(path string) bool
	quiet   time.Duration
	Changes chan string
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewWatcher watches dirs and sends the last matching path on Changes once
// no further matching event arrived for quiet.
func NewWatcher(match func(path string) bool, quiet time.Duration, dirs ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	watcher := &Watcher{
		watcher: w,
		match:   match,
		quiet:   quiet,
		Changes: make(chan string, 1),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Close stops the watcher and closes its channels.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
		close(w.Changes)
		close(w.Errors)
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	timer := time.NewTimer(w.quiet)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var pending string
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			// New category directories need their own watch.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.watcher.Add(event.Name)
				}
			}
			if !w.match(event.Name) {
				continue
			}
			if pending != "" && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			pending = event.Name
			timer.Reset(w.quiet)
		case <-timer.C:
			select {
			case w.Changes <- pending:
			default:
			}
			pending = ""
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}

// catalogFileMatcher matches the catalog file itself. Editors often replace
// the file, so its directory is watched rather than the file.
func catalogFileMatcher(path string) func(string) bool {
	want, _ := filepath.Abs(path)
	return func(name string) bool {
		got, _ := filepath.Abs(name)
		return got == want
	}
}

// audioTreeMatcher matches audio files and category directories.
func audioTreeMatcher(name string) bool {
	if isAudioFile(name) {
		return true
	}
	info, err := os.Stat(name)
	if err != nil {
		// Removed entries can no longer be stat'ed.
		return filepath.Ext(name) == ""
	}
	return info.IsDir()
}

// audioDirs lists root and its immediate sub-directories.
func audioDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	dirs := []string{root}
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs, nil
}

func isAudioFile(name string) bool {
	_, ok := audio.FormatMIME[catalog.Extension(name)]
	return ok
}
