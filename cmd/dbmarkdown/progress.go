package main

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// spinnerProgress shows generation progress on a terminal spinner.
type spinnerProgress struct {
	s *spinner.Spinner
}

func newSpinnerProgress(w io.Writer) *spinnerProgress {
	return &spinnerProgress{
		s: spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w)),
	}
}

// Notify replaces the spinner label and starts the spinner on first use.
func (p *spinnerProgress) Notify(message string, step, total int) {
	p.s.Lock()
	p.s.Suffix = fmt.Sprintf(" [%d/%d] %s", step, total, message)
	p.s.Unlock()
	if !p.s.Active() {
		p.s.Start()
	}
}

func (p *spinnerProgress) Stop() {
	p.s.Stop()
}
