package playback

import "time"

// flushTimer decides when the stream backlog should be flushed.
type flushTimer struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// reset sets the baseline to the current time.
func (t *flushTimer) reset() {
	t.last = t.now()
}

// due returns true if more than interval elapsed since the last flush
// and resets the baseline. Zero interval disables flushes.
func (t *flushTimer) due() bool {
	if t.interval <= 0 {
		return false
	}
	now := t.now()
	if now.Sub(t.last) <= t.interval {
		return false
	}
	t.last = now
	return true
}
