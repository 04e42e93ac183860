package tui

import (
	"context"
	"path/filepath"

	tea "charm.land/bubbletea/v2"

	"github.com/colonyops/relabel/internal/store/jsonfile"
)

// sidecarChangedMsg is sent when the current item's sidecar changes on disk.
type sidecarChangedMsg struct {
	path string
}

// sidecarWatch follows one sidecar file at a time. Switching to another file
// ends the previous subscription.
type sidecarWatch struct {
	fw     *jsonfile.FileWatcher
	cancel context.CancelFunc
	path   string
	events <-chan jsonfile.FileEvent
}

func newSidecarWatch(fw *jsonfile.FileWatcher) *sidecarWatch {
	return &sidecarWatch{fw: fw}
}

// follow starts watching path and returns the command that waits for its
// first change. It returns nil when path is already followed or no file
// watcher is configured.
func (w *sidecarWatch) follow(ctx context.Context, path string) tea.Cmd {
	if w == nil || w.fw == nil {
		return nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if path == w.path {
		return nil
	}
	w.stop()

	subCtx, cancel := context.WithCancel(ctx)
	events, err := w.fw.Watch(subCtx, path)
	if err != nil {
		cancel()
		return nil
	}
	w.cancel = cancel
	w.path = path
	w.events = events
	return waitForSidecar(events)
}

// next re-arms the wait after an event for the followed file. Events from
// an earlier subscription are dropped.
func (w *sidecarWatch) next(msg sidecarChangedMsg) tea.Cmd {
	if w == nil || w.events == nil || msg.path != w.path {
		return nil
	}
	return waitForSidecar(w.events)
}

func (w *sidecarWatch) stop() {
	if w == nil || w.cancel == nil {
		return
	}
	w.cancel()
	w.cancel = nil
	w.path = ""
	w.events = nil
}

// waitForSidecar blocks until the next event. A closed channel ends the
// loop without a message.
func waitForSidecar(events <-chan jsonfile.FileEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return sidecarChangedMsg{path: ev.Path}
	}
}
