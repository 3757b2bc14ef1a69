// Package progress shows the busy indicator in the terminal while a request
// is in flight.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/ziadkadry99/flowchat/internal/surface"
)

// Reporter is started when a request begins and finished when it ends.
type Reporter interface {
	Start(description string)
	Finish()
}

// NewReporter returns a TerminalReporter if running in an interactive
// terminal, or a CIReporter if the CI environment variable is set.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{w: os.Stderr}
	}
	return &TerminalReporter{w: os.Stderr}
}

// TerminalReporter displays an indeterminate spinner.
type TerminalReporter struct {
	w    io.Writer
	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	stop chan struct{}
	done chan struct{}
}

func (r *TerminalReporter) Start(description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		return
	}
	r.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.spin(r.bar, r.stop, r.done)
}

func (r *TerminalReporter) spin(bar *progressbar.ProgressBar, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = bar.Add(1)
		}
	}
}

func (r *TerminalReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar == nil {
		return
	}
	close(r.stop)
	<-r.done
	_ = r.bar.Finish()
	r.bar = nil
}

// CIReporter prints one line per request, suitable for CI logs.
type CIReporter struct {
	w       io.Writer
	started time.Time
}

func (r *CIReporter) Start(description string) {
	r.started = time.Now()
	fmt.Fprintf(r.w, "%s\n", description)
}

func (r *CIReporter) Finish() {
	fmt.Fprintf(r.w, "Done in %s\n", time.Since(r.started).Round(time.Millisecond))
}

// Follow drives r from the busy flag of state until the returned function is
// called.
func Follow(state *surface.State, r Reporter, description string) func() {
	var mu sync.Mutex
	running := false
	return state.Subscribe(func(snap surface.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case snap.Busy && !running:
			running = true
			r.Start(description)
		case !snap.Busy && running:
			running = false
			r.Finish()
		}
	})
}
