package filewatcher

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Kubernetes swaps ConfigMap and Secret volume contents by replacing this
// symlink.
const dataDirectoryLnName = "..data"

// FsFileWatcher is used to monitor a single file on the filesystem
type FsFileWatcher struct {
	path      string
	EventChan chan<- struct{}
	ErrorChan chan<- error
}

// NewFsFileWatcher constructs a FsFileWatcher instance
func NewFsFileWatcher(path string, eventCh chan<- struct{}, errCh chan<- error) *FsFileWatcher {
	return &FsFileWatcher{filepath.Clean(path), eventCh, errCh}
}

// StartWatching watches the file's directory and signals EventChan whenever
// the file is written, created, renamed or removed. It returns once the
// watcher fails or ctx is done.
func (fw *FsFileWatcher) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory so that a replaced file is still observed.
	dir := filepath.Dir(fw.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			log.Debugf("Received event: %v", event)
			if fw.relevant(event) {
				select {
				case fw.EventChan <- struct{}{}:
				case <-ctx.Done():
					return nil
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("Error while watching %s: %s", dir, err)
			select {
			case fw.ErrorChan <- err:
			case <-ctx.Done():
			}
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (fw *FsFileWatcher) relevant(event fsnotify.Event) bool {
	name := filepath.Clean(event.Name)
	if name != fw.path && name != filepath.Join(filepath.Dir(fw.path), dataDirectoryLnName) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}

// WatchFileChanges watches path and calls onChangeFunc after every change
// until ctx is done. Errors returned by onChangeFunc are logged.
func WatchFileChanges(ctx context.Context, path string, onChangeFunc func() error) error {
	eventCh := make(chan struct{})
	errorCh := make(chan error)

	fswatcher := NewFsFileWatcher(path, eventCh, errorCh)
	go func() {
		if err := fswatcher.StartWatching(ctx); err != nil {
			select {
			case errorCh <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-eventCh:
			if err := onChangeFunc(); err != nil {
				log.Warnf("Failed to reload %s: %s", path, err)
			} else {
				log.Infof("Reloaded %s", path)
			}
		case err := <-errorCh:
			log.Warnf("Received error from fs watcher: %s", err)
			return err
		case <-ctx.Done():
			return nil
		}
	}
}
