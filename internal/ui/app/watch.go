package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

// refreshMsg signals that another process touched the data home.
type refreshMsg struct{}

// homeWatcher watches the data home and coalesces filesystem events into
// refresh ticks. SQLite touches the database, -wal and -shm files on every
// commit, so a single CLI write arrives as a burst; the debounce window
// folds the burst into one tick.
type homeWatcher struct {
	fs    *fsnotify.Watcher
	ticks chan struct{}
}

func newHomeWatcher(homePath string) (*homeWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(homePath); err != nil {
		_ = fs.Close()
		return nil, err
	}
	w := &homeWatcher{fs: fs, ticks: make(chan struct{}, 1)}
	go w.run()
	return w, nil
}

func (w *homeWatcher) run() {
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	armed := false
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !armed {
				armed = true
				debounce.Reset(400 * time.Millisecond)
			}
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
		case <-debounce.C:
			armed = false
			select {
			case w.ticks <- struct{}{}:
			default:
			}
		}
	}
}

// wait blocks until the next tick. The app re-arms it after each refreshMsg.
func (w *homeWatcher) wait() tea.Cmd {
	return func() tea.Msg {
		<-w.ticks
		return refreshMsg{}
	}
}
