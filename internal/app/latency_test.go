package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyTracker_Empty(t *testing.T) {
	l := NewLatencyTracker(time.Minute)
	assert.Zero(t, l.Median())
	assert.Zero(t, l.Count())
}

func TestLatencyTracker_InsufficientSamples(t *testing.T) {
	l := NewLatencyTracker(time.Minute)
	l.Record(5 * time.Millisecond)
	l.Record(7 * time.Millisecond)
	assert.Zero(t, l.Median())
	assert.Equal(t, 2, l.Count())
}

func TestLatencyTracker_Median(t *testing.T) {
	l := NewLatencyTracker(time.Minute)
	for _, ms := range []int{40, 2, 9, 3, 12} {
		l.Record(time.Duration(ms) * time.Millisecond)
	}
	assert.Equal(t, 9*time.Millisecond, l.Median())
}

func TestLatencyTracker_DropsNegative(t *testing.T) {
	l := NewLatencyTracker(time.Minute)
	l.Record(-time.Second)
	assert.Zero(t, l.Count())
}

func TestLatencyTracker_WindowEviction(t *testing.T) {
	l := NewLatencyTracker(time.Minute)
	base := time.Now()
	for i := 0; i < 3; i++ {
		l.RecordAt(base.Add(-2*time.Minute), time.Second)
	}
	for i := 0; i < 3; i++ {
		l.RecordAt(base, time.Millisecond)
	}
	assert.Equal(t, time.Millisecond, l.MedianAt(base))
	assert.Zero(t, l.MedianAt(base.Add(2*time.Minute)))
}
