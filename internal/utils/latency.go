package utils

import (
	"slices"
	"sync"
	"time"
)

const defaultLatencyWindow = 512

// LatencyTracker keeps the most recent run durations in a ring and reports
// percentiles over that window.
type LatencyTracker struct {
	mu       sync.RWMutex
	ring     []time.Duration
	next     int
	observed int
}

// NewLatencyTracker creates a tracker holding up to window samples.
func NewLatencyTracker(window int) *LatencyTracker {
	if window <= 0 {
		window = defaultLatencyWindow
	}
	return &LatencyTracker{ring: make([]time.Duration, 0, window)}
}

// Observe records d, overwriting the oldest sample once the window is full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.observed++
	if len(l.ring) < cap(l.ring) {
		l.ring = append(l.ring, d)
		return
	}
	l.ring[l.next] = d
	l.next = (l.next + 1) % len(l.ring)
}

// Percentile returns the p-th percentile (0-100) of the window, or zero when empty.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return percentile(l.sorted(), p)
}

// Count returns the number of samples currently held.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ring)
}

// Observed returns the number of samples recorded since creation.
func (l *LatencyTracker) Observed() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.observed
}

// LatencySummary is a point-in-time view of the tracker.
type LatencySummary struct {
	Observed int
	P50      time.Duration
	P95      time.Duration
	Max      time.Duration
}

// Summary computes the median, p95 and max from a single snapshot.
func (l *LatencyTracker) Summary() LatencySummary {
	l.mu.RLock()
	sorted := l.sorted()
	observed := l.observed
	l.mu.RUnlock()

	return LatencySummary{
		Observed: observed,
		P50:      percentile(sorted, 50),
		P95:      percentile(sorted, 95),
		Max:      percentile(sorted, 100),
	}
}

// sorted must be called with the lock held.
func (l *LatencyTracker) sorted() []time.Duration {
	s := slices.Clone(l.ring)
	slices.Sort(s)
	return s
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	index := int((p / 100.0) * float64(len(sorted)-1))
	return sorted[min(max(index, 0), len(sorted)-1)]
}
