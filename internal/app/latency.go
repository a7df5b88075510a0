package app

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps resolution durations over a rolling window and
// reports their median. Thread-safe.
type LatencyTracker struct {
	mu      sync.Mutex
	window  time.Duration
	samples []latencySample
}

type latencySample struct {
	ts time.Time
	d  time.Duration
}

// minSamples is the sample count below which Median reports nothing.
const minSamples = 3

// NewLatencyTracker creates a tracker with the given rolling window duration.
func NewLatencyTracker(window time.Duration) *LatencyTracker {
	return &LatencyTracker{window: window}
}

// Record adds a sample at the current time.
func (l *LatencyTracker) Record(d time.Duration) {
	l.RecordAt(time.Now(), d)
}

// RecordAt adds a sample at a specific timestamp. Negative durations are
// dropped.
func (l *LatencyTracker) RecordAt(ts time.Time, d time.Duration) {
	if d < 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.samples = append(l.samples, latencySample{ts: ts, d: d})
	l.evict(ts)
}

// Median returns the P50 duration within the window, or 0 with fewer than
// minSamples samples.
func (l *LatencyTracker) Median() time.Duration {
	return l.MedianAt(time.Now())
}

// MedianAt is Median evaluated at now.
func (l *LatencyTracker) MedianAt(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(now)
	if len(l.samples) < minSamples {
		return 0
	}
	ds := make([]time.Duration, len(l.samples))
	for i, s := range l.samples {
		ds[i] = s.d
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i] < ds[j] })
	return ds[len(ds)/2]
}

// Count returns the number of samples in the window.
func (l *LatencyTracker) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(time.Now())
	return len(l.samples)
}

// evict removes samples older than the window.
func (l *LatencyTracker) evict(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.samples) && l.samples[i].ts.Before(cutoff) {
		i++
	}
	if i > 0 {
		l.samples = l.samples[i:]
	}
}
