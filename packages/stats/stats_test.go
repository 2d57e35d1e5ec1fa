package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStats_Counters(t *testing.T) {
	s := New()
	s.Start()
	s.SetRecords(6)

	s.RecordSaved(10*time.Millisecond, 1)
	s.RecordSaved(20*time.Millisecond, 2)
	s.RecordFailed(30*time.Millisecond, 4)
	s.RecordSkipped()
	s.Stop()

	sum := s.Summary()
	assert.Equal(t, int64(6), sum.Records)
	assert.Equal(t, int64(2), sum.Saved)
	assert.Equal(t, int64(1), sum.Failed)
	assert.Equal(t, int64(1), sum.Skipped)
	assert.Equal(t, int64(2), sum.Pending)
	assert.Equal(t, int64(7), sum.Attempts)
	assert.GreaterOrEqual(t, sum.Duration, time.Duration(0))
}

func TestStats_Percentiles(t *testing.T) {
	s := New()
	for i := 1; i <= 100; i++ {
		s.RecordSaved(time.Duration(i)*time.Millisecond, 1)
	}

	sum := s.Summary()
	assert.InDelta(t, 50*time.Millisecond, sum.P50, float64(time.Millisecond))
	assert.InDelta(t, 95*time.Millisecond, sum.P95, float64(time.Millisecond))
	assert.InDelta(t, 99*time.Millisecond, sum.P99, float64(time.Millisecond))
	assert.InDelta(t, 100*time.Millisecond, sum.Max, float64(time.Millisecond))
	assert.InDelta(t, 50500*time.Microsecond, sum.Mean, float64(time.Millisecond))
}

func TestStats_EmptyHasNoLatency(t *testing.T) {
	s := New()
	s.SetRecords(3)
	s.RecordSkipped()

	sum := s.Summary()
	assert.Zero(t, sum.P50)
	assert.Zero(t, sum.Max)
	assert.Zero(t, sum.Duration)
	assert.Equal(t, int64(2), sum.Pending)
}

func TestStats_ClampsLatency(t *testing.T) {
	s := New()
	s.RecordSaved(0, 1)
	s.RecordSaved(2*time.Minute, 1)

	sum := s.Summary()
	assert.LessOrEqual(t, sum.Max, 61*time.Second)
}
