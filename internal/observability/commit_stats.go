// Package observability provides commit statistics tracking for conflict
// diagnosis and performance monitoring.
package observability

import (
	"sort"
	"sync"
	"time"
)

// Outcome classifies how a commit attempt ended.
type Outcome string

const (
	// OutcomeSuccess is a commit that published a new metadata version.
	OutcomeSuccess Outcome = "success"
	// OutcomeConflict is a commit rejected by the catalog pointer swap.
	OutcomeConflict Outcome = "conflict"
	// OutcomeFailure is a commit that failed before or during publishing.
	OutcomeFailure Outcome = "failure"
)

// DefaultSampleSize bounds the duration sample when no size is given.
const DefaultSampleSize = 512

// CommitStats tracks commit attempt outcomes, operation mix, and a
// bounded sample of attempt durations.
type CommitStats struct {
	mu         sync.RWMutex
	attempts   int64
	successes  int64
	conflicts  int64
	failures   int64
	operations map[string]*OperationStats
	durations  []time.Duration // ring buffer of recent attempt durations
	next       int
	filled     bool
	window     time.Duration
}

// OperationStats holds frequency for one operation kind.
type OperationStats struct {
	Kind      string
	Frequency int64
	LastSeen  time.Time
}

// NewCommitStats creates a new commit statistics tracker.
// sampleSize: number of recent durations retained for percentiles
// window: time duration for pruning stale operation entries
func NewCommitStats(sampleSize int, window time.Duration) *CommitStats {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &CommitStats{
		operations: make(map[string]*OperationStats),
		durations:  make([]time.Duration, sampleSize),
		window:     window,
	}
}

// RecordAttempt records one commit attempt: its outcome, duration, and
// the operation kinds it carried.
// This method is O(kinds) and thread-safe.
func (c *CommitStats) RecordAttempt(outcome Outcome, d time.Duration, kinds ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.attempts++
	switch outcome {
	case OutcomeSuccess:
		c.successes++
	case OutcomeConflict:
		c.conflicts++
	default:
		c.failures++
	}

	c.durations[c.next] = d
	c.next++
	if c.next == len(c.durations) {
		c.next = 0
		c.filled = true
	}

	now := time.Now()
	for _, kind := range kinds {
		stats, exists := c.operations[kind]
		if !exists {
			stats = &OperationStats{Kind: kind}
			c.operations[kind] = stats
		}
		stats.Frequency++
		stats.LastSeen = now
	}
}

// StatsSummary is a point-in-time copy of the collected statistics.
type StatsSummary struct {
	Attempts  int64
	Successes int64
	Conflicts int64
	Failures  int64
	Sampled   int
	P50       time.Duration
	P95       time.Duration
	P99       time.Duration
	Max       time.Duration
}

// Summary returns counters plus duration percentiles over the retained
// sample. Returns a copy; the tracker keeps collecting.
func (c *CommitStats) Summary() StatsSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := StatsSummary{
		Attempts:  c.attempts,
		Successes: c.successes,
		Conflicts: c.conflicts,
		Failures:  c.failures,
	}

	n := c.next
	if c.filled {
		n = len(c.durations)
	}
	if n == 0 {
		return s
	}
	s.Sampled = n

	sample := make([]time.Duration, n)
	copy(sample, c.durations[:n])
	sort.Slice(sample, func(i, j int) bool { return sample[i] < sample[j] })

	s.P50 = percentile(sample, 50)
	s.P95 = percentile(sample, 95)
	s.P99 = percentile(sample, 99)
	s.Max = sample[n-1]
	return s
}

// percentile picks the q-th percentile from an ascending sample.
func percentile(sorted []time.Duration, q int) time.Duration {
	idx := (q*len(sorted) + 99) / 100
	if idx > 0 {
		idx--
	}
	return sorted[idx]
}

// ConflictRate returns conflicts as a share of attempts, 0 when no
// attempts were recorded.
func (c *CommitStats) ConflictRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.attempts == 0 {
		return 0
	}
	return float64(c.conflicts) / float64(c.attempts)
}

// GetTopOperations returns the top N operation kinds by frequency.
// Returns a copy of the stats sorted by frequency (descending).
func (c *CommitStats) GetTopOperations(n int) []OperationStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n <= 0 || len(c.operations) == 0 {
		return []OperationStats{}
	}

	stats := make([]OperationStats, 0, len(c.operations))
	for _, s := range c.operations {
		stats = append(stats, *s)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Frequency != stats[j].Frequency {
			return stats[i].Frequency > stats[j].Frequency
		}
		return stats[i].Kind < stats[j].Kind
	})

	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

// Prune removes operation entries where time.Since(LastSeen) > window.
// This should be called periodically on long-lived trackers.
func (c *CommitStats) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()

	threshold := time.Now().Add(-c.window)
	for kind, stats := range c.operations {
		if stats.LastSeen.Before(threshold) {
			delete(c.operations, kind)
		}
	}
}
