// Package session runs the per-connection transcription pipeline: audio in,
// transcript and hint events out, finalized segments persisted.
package session

import (
	"fmt"
	"time"
)

// clock stamps pipeline events with the elapsed time since the session
// started. The now func is replaceable in tests.
type clock struct {
	start time.Time
	now   func() time.Time
}

func newClock() *clock {
	return &clock{start: time.Now(), now: time.Now}
}

// Timestamp returns the elapsed session time formatted as zero-padded
// HH:MM:SS.
func (c *clock) Timestamp() string {
	return FormatElapsed(c.now().Sub(c.start))
}

// FormatElapsed formats a duration as zero-padded HH:MM:SS. Negative
// durations clamp to 00:00:00.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
