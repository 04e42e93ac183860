package jsonfile

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/colonyops/relabel/internal/core/logging"
	"github.com/fsnotify/fsnotify"
)

const (
	debounceDelay   = 50 * time.Millisecond
	eventBufferSize = 16
)

// FileEvent reports that a watched file changed on disk.
type FileEvent struct {
	Path      string
	Timestamp time.Time
}

// FileWatcher watches individual record files for external edits using
// fsnotify. Parent directories are watched so that atomic tmp+rename writes
// are observed.
type FileWatcher struct {
	watcher *fsnotify.Watcher

	mu          sync.Mutex
	dirs        map[string]int                // dir -> subscriber count
	subscribers map[string][]chan<- FileEvent // file path -> channels
	debounce    map[string]*time.Timer        // file path -> debounce timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFileWatcher creates a watcher with no subscriptions.
func NewFileWatcher() (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	fw := &FileWatcher{
		watcher:     watcher,
		dirs:        make(map[string]int),
		subscribers: make(map[string][]chan<- FileEvent),
		debounce:    make(map[string]*time.Timer),
		ctx:         ctx,
		cancel:      cancel,
	}

	fw.wg.Add(1)
	go fw.run()

	return fw, nil
}

// Watch returns a channel that receives an event each time path changes. The
// subscription ends, and the channel is closed, when ctx is done.
func (fw *FileWatcher) Watch(ctx context.Context, path string) (<-chan FileEvent, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)

	fw.mu.Lock()
	if fw.dirs[dir] == 0 {
		if err := fw.watcher.Add(dir); err != nil {
			fw.mu.Unlock()
			return nil, err
		}
	}
	fw.dirs[dir]++

	ch := make(chan FileEvent, eventBufferSize)
	fw.subscribers[path] = append(fw.subscribers[path], ch)
	fw.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			fw.unsubscribe(path, ch)
		case <-fw.ctx.Done():
			// Watcher is closing, channel will be closed by Close()
		}
	}()

	return ch, nil
}

// Close stops watching and closes all subscriber channels.
func (fw *FileWatcher) Close() error {
	fw.cancel()

	fw.mu.Lock()
	for _, timer := range fw.debounce {
		timer.Stop()
	}
	for _, subs := range fw.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	fw.subscribers = make(map[string][]chan<- FileEvent)
	fw.mu.Unlock()

	err := fw.watcher.Close()
	fw.wg.Wait()
	return err
}

// unsubscribe removes a channel from the subscriber list, closes it and
// drops the directory watch once nobody needs it.
func (fw *FileWatcher) unsubscribe(path string, ch chan<- FileEvent) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	subs := fw.subscribers[path]
	for i, sub := range subs {
		if sub == ch {
			fw.subscribers[path] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
	if len(fw.subscribers[path]) == 0 {
		delete(fw.subscribers, path)
	}

	dir := filepath.Dir(path)
	fw.dirs[dir]--
	if fw.dirs[dir] <= 0 {
		delete(fw.dirs, dir)
		_ = fw.watcher.Remove(dir)
	}
}

func (fw *FileWatcher) run() {
	defer fw.wg.Done()

	log := logging.Component("watcher")
	for {
		select {
		case <-fw.ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	if strings.HasSuffix(event.Name, ".tmp") || strings.HasSuffix(event.Name, ".lock") {
		return
	}

	path := filepath.Clean(event.Name)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, watched := fw.subscribers[path]; !watched {
		return
	}
	if timer, exists := fw.debounce[path]; exists {
		timer.Stop()
	}
	fw.debounce[path] = time.AfterFunc(debounceDelay, func() {
		fw.notifySubscribers(path)
	})
}

func (fw *FileWatcher) notifySubscribers(path string) {
	event := FileEvent{Path: path, Timestamp: time.Now()}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	for _, ch := range fw.subscribers[path] {
		select {
		case ch <- event:
		default:
			// Channel full, drop event to prevent blocking
		}
	}

	delete(fw.debounce, path)
}
