package worker

import "time"

// tracker derives progress and ETA from completed-item counts.
type tracker struct {
	start     time.Time
	total     int
	completed int
}

func newTracker(total int) *tracker {
	return &tracker{start: time.Now(), total: total}
}

// complete records one finished item and returns the updated counts.
func (t *tracker) complete() (completed int, eta time.Duration) {
	t.completed++
	return t.completed, t.eta()
}

// eta estimates remaining time as mean per-item elapsed time times the
// remaining item count, clamped to zero before the first completion.
func (t *tracker) eta() time.Duration {
	if t.completed == 0 {
		return 0
	}
	elapsed := time.Since(t.start)
	remaining := t.total - t.completed
	if remaining <= 0 {
		return 0
	}
	return time.Duration(int64(elapsed) / int64(t.completed) * int64(remaining))
}

func (t *tracker) elapsed() time.Duration {
	return time.Since(t.start)
}
