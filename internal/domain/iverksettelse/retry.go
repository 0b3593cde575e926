package iverksettelse

import "time"

// delays is the fixed escalating retry table, keyed by failure count.
// Counts beyond the table cap at 24 hours.
var delays = []time.Duration{
	1:  1 * time.Minute,
	2:  5 * time.Minute,
	3:  15 * time.Minute,
	4:  30 * time.Minute,
	5:  1 * time.Hour,
	6:  2 * time.Hour,
	7:  4 * time.Hour,
	8:  8 * time.Hour,
	9:  12 * time.Hour,
	10: 24 * time.Hour,
}

// Delay returns the waiting period after the given number of consecutive
// failures
func Delay(count int) time.Duration {
	if count <= 0 {
		return 0
	}
	if count >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[count]
}

// FailureCounter tracks consecutive transient failures of one dispatch. It is
// a value type with no clock of its own, so retry decisions are deterministic
// under an injected "now".
type FailureCounter struct {
	Count         int
	LastFailureAt time.Time
}

// ShouldRetryNow consults the delay table. A counter that has never failed
// is always ready; otherwise the attempt must wait out the delay for the
// current failure count. Counting the failure itself is RecordFailure's job.
func (c FailureCounter) ShouldRetryNow(now time.Time) bool {
	if c.Count == 0 {
		return true
	}
	return !now.Before(c.LastFailureAt.Add(Delay(c.Count)))
}

// RecordFailure returns the counter advanced by one failed attempt
func (c FailureCounter) RecordFailure(now time.Time) FailureCounter {
	return FailureCounter{Count: c.Count + 1, LastFailureAt: now}
}
