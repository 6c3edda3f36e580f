package metrics

import (
	"fmt"
	"time"
)

const (
	// RateSpan is the trailing window tool calls are counted over.
	RateSpan = 60 * time.Second
	// RateThreshold is the window size at which Check starts advising.
	RateThreshold = 10
)

// RateWindow tracks timestamps of recent tool calls.
type RateWindow struct {
	now   func() time.Time
	calls []time.Time
}

// NewRateWindow returns an empty window using the wall clock.
func NewRateWindow() *RateWindow {
	return &RateWindow{now: time.Now}
}

// WithClock replaces the time source, for tests.
func (w *RateWindow) WithClock(now func() time.Time) *RateWindow {
	w.now = now
	return w
}

// Check records a call at the current time and returns an advisory when
// RateThreshold or more calls fall within the last RateSpan. The advisory is
// recomputed on every call; it is empty below the threshold.
func (w *RateWindow) Check() string {
	now := w.now()
	kept := w.calls[:0]
	for _, t := range w.calls {
		if now.Sub(t) < RateSpan {
			kept = append(kept, t)
		}
	}
	w.calls = append(kept, now)

	if len(w.calls) < RateThreshold {
		return ""
	}
	return fmt.Sprintf("\n\n[Note: %d tool calls in the last %d seconds. For bulk operations, batch the work into fewer calls "+
		"(for example one shell_exec running a script), or add sleep between polling checks.]", len(w.calls), int(RateSpan.Seconds()))
}

// Len returns the number of calls currently in the window.
func (w *RateWindow) Len() int { return len(w.calls) }

// Reset forgets all recorded calls.
func (w *RateWindow) Reset() { w.calls = nil }
