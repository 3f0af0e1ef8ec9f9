package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"indiestream/pkg/logging"

	"golang.org/x/sync/errgroup"
)

// Engine defaults.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxPolls     = 60
	DefaultWorkers      = 2
)

// Config tunes an Engine.
type Config struct {
	// PollInterval is the delay between refreshes of an incomplete entry.
	PollInterval time.Duration

	// MaxPolls bounds the refreshes per incomplete entry after a list.
	// Zero means no limit.
	MaxPolls int

	// Workers is the number of concurrent reconciliation refreshes.
	Workers int

	AllowedExtensions []string
	MaxSizeBytes      int64
}

// Engine is the authoritative local cache of catalog entries.
type Engine struct {
	api       API
	cfg       Config
	validator *Validator

	// seq orders operations by the time they were started.
	seq atomic.Uint64

	mu      sync.RWMutex
	entries []Entry
	writers map[string]uint64
	listSeq uint64
	polls   map[string]int

	updates chan struct{}
	queue   *delayedQueue

	runMu   sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// NewEngine creates an Engine over api. Call Start to run reconciliation.
func NewEngine(api API, cfg Config) (*Engine, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPolls < 0 {
		cfg.MaxPolls = DefaultMaxPolls
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	v, err := NewValidator(cfg.AllowedExtensions, cfg.MaxSizeBytes)
	if err != nil {
		return nil, err
	}

	return &Engine{
		api:       api,
		cfg:       cfg,
		validator: v,
		writers:   make(map[string]uint64),
		polls:     make(map[string]int),
		updates:   make(chan struct{}, 1),
		queue:     newDelayedQueue(),
	}, nil
}

// Validator returns the upload validator.
func (e *Engine) Validator() *Validator {
	return e.validator
}

// Start runs the reconciliation workers until ctx ends or Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.stopped {
		return errors.New("catalog engine already stopped")
	}
	if e.running {
		return nil
	}

	ctx, e.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < e.cfg.Workers; i++ {
		id := i
		g.Go(func() error {
			e.worker(gctx, id)
			return nil
		})
	}
	e.group = g
	e.running = true

	logging.Debug("Catalog", "Started reconciliation with %d workers", e.cfg.Workers)
	return nil
}

// Stop cancels in-flight reconciliation and waits for the workers.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.stopped {
		return
	}
	e.stopped = true
	if e.cancel != nil {
		e.cancel()
	}
	e.queue.Shutdown()
	if e.group != nil {
		_ = e.group.Wait()
	}
	e.running = false
	logging.Debug("Catalog", "Reconciliation stopped")
}

// Snapshot returns a copy of the cached entries in list order.
func (e *Engine) Snapshot() []Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Entry(nil), e.entries...)
}

// Entry returns the cached entry for id.
func (e *Engine) Entry(id string) (Entry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i := e.indexLocked(id); i >= 0 {
		return e.entries[i], true
	}
	return Entry{}, false
}

// Reconciling returns the number of entries still being polled.
func (e *Engine) Reconciling() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.polls)
}

// Updates signals after the cache changed. Signals are coalesced.
func (e *Engine) Updates() <-chan struct{} {
	return e.updates
}

// ListEntries replaces the cache with the remote list and queues every
// incomplete entry for reconciliation. On error the cache is unchanged.
func (e *Engine) ListEntries(ctx context.Context) error {
	seq := e.seq.Add(1)

	fetched, err := e.api.List(ctx)
	if err != nil {
		logging.Error("Catalog", err, "Failed to list games")
		return err
	}

	e.mu.Lock()
	if seq < e.listSeq {
		e.mu.Unlock()
		logging.Debug("Catalog", "Discarding list %d, a newer list already landed", seq)
		return nil
	}
	e.listSeq = seq

	entries := make([]Entry, 0, len(fetched))
	writers := make(map[string]uint64, len(fetched))
	for _, entry := range fetched {
		if w := e.writers[entry.ID]; w > seq {
			// A refresh started after this list already landed.
			if i := e.indexLocked(entry.ID); i >= 0 {
				entries = append(entries, e.entries[i])
				writers[entry.ID] = w
				continue
			}
		}
		entries = append(entries, entry)
		writers[entry.ID] = seq
	}

	var dropped, incomplete []string
	for id := range e.polls {
		if _, ok := writers[id]; !ok {
			dropped = append(dropped, id)
		}
	}
	polls := make(map[string]int)
	for _, entry := range entries {
		if entry.needsReconcile() {
			incomplete = append(incomplete, entry.ID)
			polls[entry.ID] = 0
		}
	}

	e.entries = entries
	e.writers = writers
	e.polls = polls
	e.mu.Unlock()

	for _, id := range dropped {
		e.queue.Forget(id)
	}
	for _, id := range incomplete {
		e.queue.Add(id)
	}
	e.notify()

	logging.Info("Catalog", "Listed %d games, %d still processing", len(entries), len(incomplete))
	return nil
}

// RefreshEntry fetches one entry and replaces it in place. The cache is
// left untouched when the entry is missing remotely, when it is no longer
// cached, or when a newer operation already wrote it.
func (e *Engine) RefreshEntry(ctx context.Context, id string) error {
	seq := e.seq.Add(1)

	entry, err := e.api.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logging.Warn("Catalog", "Game %s no longer exists remotely; keeping the cached entry", id)
		} else {
			logging.Error("Catalog", err, "Failed to refresh game %s", id)
		}
		return err
	}
	entry.ID = id

	if e.apply(seq, entry) {
		e.notify()
	}
	return nil
}

// apply writes entry if seq is the newest write for its id.
func (e *Engine) apply(seq uint64, entry Entry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexLocked(entry.ID)
	if i < 0 {
		logging.Debug("Catalog", "Discarding refresh for %s, no longer cached", entry.ID)
		return false
	}
	if e.writers[entry.ID] > seq {
		logging.Debug("Catalog", "Discarding stale refresh %d for %s", seq, entry.ID)
		return false
	}
	e.entries[i] = entry
	e.writers[entry.ID] = seq
	return true
}

// DeleteEntry deletes the entry remotely and, once that succeeded, from the
// cache.
func (e *Engine) DeleteEntry(ctx context.Context, id string) error {
	if err := e.api.Delete(ctx, id); err != nil {
		logging.Error("Catalog", err, "Failed to delete game %s", id)
		logging.Audit(logging.AuditEvent{Action: "game_delete", Outcome: "failure", Target: id, Error: err.Error()})
		return err
	}

	e.mu.Lock()
	if i := e.indexLocked(id); i >= 0 {
		e.entries = append(e.entries[:i:i], e.entries[i+1:]...)
	}
	delete(e.writers, id)
	delete(e.polls, id)
	e.mu.Unlock()

	e.queue.Forget(id)
	e.notify()

	logging.Audit(logging.AuditEvent{Action: "game_delete", Outcome: "success", Target: id})
	return nil
}

// UploadEntry validates req and starts the upload. Invalid requests return
// a *ValidationError without touching the network. The cache is never
// modified by an upload; list again to see the new entry.
func (e *Engine) UploadEntry(ctx context.Context, req UploadRequest) (*Upload, error) {
	if err := e.validator.Validate(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	u := newUpload(cancel)
	go u.run(ctx, e.api, req)

	logging.Debug("Catalog", "Uploading %q (%d bytes)", req.Title, len(req.File))
	return u, nil
}

func (e *Engine) worker(ctx context.Context, id int) {
	logging.Debug("Catalog", "Worker %d started", id)
	for {
		entryID, ok := e.queue.Get(ctx)
		if !ok {
			logging.Debug("Catalog", "Worker %d shutting down", id)
			return
		}
		e.reconcile(ctx, entryID)
		e.queue.Done(entryID)
	}
}

// reconcile refreshes one incomplete entry and schedules the next poll.
func (e *Engine) reconcile(ctx context.Context, id string) {
	err := e.RefreshEntry(ctx, id)
	if ctx.Err() != nil {
		return
	}

	e.mu.Lock()
	polls, tracked := e.polls[id]
	if !tracked {
		e.mu.Unlock()
		return
	}
	i := e.indexLocked(id)

	var finished string
	switch {
	case errors.Is(err, ErrNotFound) || i < 0:
		finished = "removed"
	case err == nil && !e.entries[i].needsReconcile():
		finished = string(e.entries[i].Status)
	case e.cfg.MaxPolls > 0 && polls+1 >= e.cfg.MaxPolls:
		finished = fmt.Sprintf("still processing after %d polls", polls+1)
	}
	if finished != "" {
		delete(e.polls, id)
		e.mu.Unlock()
		logging.Info("Catalog", "Stopped polling game %s: %s", id, finished)
		e.notify()
		return
	}
	e.polls[id] = polls + 1
	e.mu.Unlock()

	e.queue.AddAfter(id, e.cfg.PollInterval)
}

func (e *Engine) indexLocked(id string) int {
	for i := range e.entries {
		if e.entries[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) notify() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}
