package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpinner_Quiet(t *testing.T) {
	s := StartSpinner(&bytes.Buffer{}, "loading", true)
	s.Stop("done")
	s.Fail("failed")
}

func TestProgressBar_Watch(t *testing.T) {
	var buf bytes.Buffer
	b := NewProgressBar(&buf, "Uploading")

	ratios := make(chan float64, 3)
	ratios <- 0.25
	ratios <- 0.5
	ratios <- 1
	close(ratios)

	err := b.Watch(ratios, func() error { return nil })
	assert.NoError(t, err)
	assert.True(t, b.tracker.IsDone())
	assert.Contains(t, buf.String(), "Uploading")
}

func TestProgressBar_WatchFailure(t *testing.T) {
	b := NewProgressBar(&bytes.Buffer{}, "Uploading")
	ratios := make(chan float64)
	close(ratios)

	boom := errors.New("boom")
	err := b.Watch(ratios, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, b.tracker.IsErrored())
}
