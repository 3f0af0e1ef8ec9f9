package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"indiestream/pkg/logging"
)

// ErrUploadCanceled is returned by Wait after Cancel.
var ErrUploadCanceled = errors.New("upload canceled")

// Upload is a running upload. Progress delivers ratios in [0,1]; the
// channel is closed when the upload ends. Cancel aborts it; Wait returns
// the outcome.
type Upload struct {
	cancel   context.CancelFunc
	progress chan float64
	done     chan struct{}

	mu       sync.Mutex
	closed   bool
	halted   bool
	last     float64
	err      error
	location string
}

func newUpload(cancel context.CancelFunc) *Upload {
	return &Upload{
		cancel:   cancel,
		progress: make(chan float64, 16),
		done:     make(chan struct{}),
	}
}

// Progress returns the progress channel. Slow readers see the latest value;
// intermediate values may be dropped.
func (u *Upload) Progress() <-chan float64 {
	return u.progress
}

// Cancel aborts the upload. No progress is delivered afterwards.
func (u *Upload) Cancel() {
	u.mu.Lock()
	u.halted = true
	u.mu.Unlock()
	u.cancel()
}

// Done is closed when the upload has ended.
func (u *Upload) Done() <-chan struct{} {
	return u.done
}

// Wait blocks until the upload ends and returns its error.
func (u *Upload) Wait() error {
	<-u.done
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

// Location returns the Content-Location of the created entry after a
// successful upload.
func (u *Upload) Location() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.location
}

// EntryID returns the id of the created entry after a successful upload.
func (u *Upload) EntryID() string {
	return EntryIDFromLocation(u.Location())
}

func (u *Upload) run(ctx context.Context, api API, req UploadRequest) {
	defer close(u.done)
	defer u.cancel()

	location, err := api.Upload(ctx, req, func(sent, total int64) {
		u.report(ctx, sent, total)
	})

	canceled := errors.Is(ctx.Err(), context.Canceled)
	if err != nil && !canceled {
		// Reset observers to zero on failure.
		u.send(0, true)
	}

	u.mu.Lock()
	u.closed = true
	close(u.progress)
	switch {
	case err != nil && canceled:
		u.err = fmt.Errorf("%w: %s", ErrUploadCanceled, req.Title)
	case err != nil:
		u.err = err
	default:
		u.location = location
	}
	u.mu.Unlock()

	switch {
	case canceled && err != nil:
		logging.Info("Catalog", "Upload of %q canceled", req.Title)
	case err != nil:
		logging.Error("Catalog", err, "Upload of %q failed", req.Title)
		logging.Audit(logging.AuditEvent{Action: "game_upload", Outcome: "failure", Target: req.Title, Error: err.Error()})
	default:
		logging.Info("Catalog", "Uploaded %q as %s", req.Title, EntryIDFromLocation(location))
		logging.Audit(logging.AuditEvent{Action: "game_upload", Outcome: "success", Target: req.Title})
	}
}

func (u *Upload) report(ctx context.Context, sent, total int64) {
	if ctx.Err() != nil || total <= 0 {
		return
	}
	ratio := float64(sent) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	u.send(ratio, false)
}

// send delivers ratio, replacing the oldest buffered value when the
// channel is full. Unless reset is set, ratios never go backwards.
func (u *Upload) send(ratio float64, reset bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed || u.halted || (!reset && ratio <= u.last && ratio != 0) {
		return
	}
	u.last = ratio
	select {
	case u.progress <- ratio:
		return
	default:
	}
	select {
	case <-u.progress:
	default:
	}
	select {
	case u.progress <- ratio:
	default:
	}
}
