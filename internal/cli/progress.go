package cli

import (
	"io"
	"time"

	strs "indiestream/pkg/strings"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Spinner shows activity while waiting. A quiet Spinner does nothing.
type Spinner struct {
	s *spinner.Spinner
}

// StartSpinner starts a spinner with message on out.
func StartSpinner(out io.Writer, message string, quiet bool) *Spinner {
	if quiet {
		return &Spinner{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " " + message
	s.Start()
	return &Spinner{s: s}
}

// Stop stops the spinner, printing final if it is not empty.
func (s *Spinner) Stop(final string) {
	if s.s == nil {
		return
	}
	if final != "" {
		s.s.FinalMSG = final + "\n"
	}
	s.s.Stop()
}

// Fail stops the spinner with a red message.
func (s *Spinner) Fail(message string) {
	s.Stop(text.FgRed.Sprint(message))
}

// maxLabelWidth bounds the progress bar label.
const maxLabelWidth = 40

// progressScale is the tracker total; ratios are mapped onto it.
const progressScale = 1000

// ProgressBar renders upload progress from ratios in [0,1].
type ProgressBar struct {
	pw      progress.Writer
	tracker *progress.Tracker
	done    chan struct{}
}

// NewProgressBar starts rendering a bar labelled message on out.
func NewProgressBar(out io.Writer, message string) *ProgressBar {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Value = false

	tracker := &progress.Tracker{Message: strs.TruncateMiddle(message, maxLabelWidth), Total: progressScale, Units: progress.UnitsDefault}
	pw.AppendTracker(tracker)

	b := &ProgressBar{pw: pw, tracker: tracker, done: make(chan struct{})}
	go func() {
		defer close(b.done)
		pw.Render()
	}()
	return b
}

// Update sets the bar to ratio.
func (b *ProgressBar) Update(ratio float64) {
	b.tracker.SetValue(int64(ratio * progressScale))
}

// Finish marks the bar done or errored and stops rendering.
func (b *ProgressBar) Finish(err error) {
	if err != nil {
		b.tracker.SetValue(0)
		b.tracker.MarkAsErrored()
	} else {
		b.tracker.MarkAsDone()
	}
	// Let the renderer draw the final state.
	time.Sleep(150 * time.Millisecond)
	b.pw.Stop()
	<-b.done
}

// Watch drives the bar from a progress channel until it closes, then
// finishes with the result of wait.
func (b *ProgressBar) Watch(ratios <-chan float64, wait func() error) error {
	for r := range ratios {
		b.Update(r)
	}
	err := wait()
	b.Finish(err)
	return err
}
