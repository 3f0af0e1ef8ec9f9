package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"indiestream/pkg/logging"

	"github.com/fsnotify/fsnotify"
)

// storeDebounceInterval collapses the burst of events produced by one
// atomic write.
const storeDebounceInterval = 200 * time.Millisecond

// WatchStore follows changes other processes make to the session file, so
// that a login or logout in one terminal is picked up by a running shell
// in another. It returns once watching has started; watching ends with ctx.
func (m *Manager) WatchStore(ctx context.Context) error {
	if m.store == nil {
		return errors.New("session manager has no store")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(m.store.Path())
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	eventsCh := watcher.Events
	errorsCh := watcher.Errors
	target := filepath.Clean(m.store.Path())

	var (
		debounceMu sync.Mutex
		debounce   *time.Timer
	)
	trigger := func() {
		debounceMu.Lock()
		defer debounceMu.Unlock()
		if debounce != nil {
			debounce.Stop()
		}
		debounce = time.AfterFunc(storeDebounceInterval, m.reloadFromStore)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				debounceMu.Lock()
				if debounce != nil {
					debounce.Stop()
				}
				debounceMu.Unlock()
				return

			case event, ok := <-eventsCh:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				trigger()

			case err, ok := <-errorsCh:
				if !ok {
					return
				}
				logging.Error("Session", err, "Session file watch error")
			}
		}
	}()

	logging.Debug("Session", "Watching %s for session changes", target)
	return nil
}

// reloadFromStore applies the stored session if it differs from the one in
// memory.
func (m *Manager) reloadFromStore() {
	stored, _, err := m.store.Load()
	if err != nil {
		logging.Warn("Session", "Ignoring unreadable session file: %v", err)
		return
	}

	m.mu.Lock()
	current := m.session
	switch {
	case stored == nil && current == nil:
		m.mu.Unlock()
		return
	case stored == nil:
		m.session = nil
		if m.stopRenewal != nil {
			m.stopRenewal()
			m.stopRenewal = nil
		}
		m.mu.Unlock()
		logging.Info("Session", "Session was cleared by another process")
		return
	case current != nil && current.AccessToken == stored.AccessToken && current.IDToken == stored.IDToken:
		m.mu.Unlock()
		return
	}
	m.session = stored
	m.mu.Unlock()

	logging.Info("Session", "Session was updated by another process")
	m.armRenewal()
}
