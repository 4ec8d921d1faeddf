package services

import (
	"sync"
	"testing"
	"time"

	"vitalwatch/internal/models"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func point(ts int64, value float64) models.MetricPoint {
	return models.MetricPoint{Timestamp: ts, Value: value}
}

func rawPoint(ts int64, value, raw float64) models.MetricPoint {
	return models.MetricPoint{Timestamp: ts, Value: value, RawValue: &raw}
}

func values(points []models.MetricPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func assertValues(t *testing.T, got []models.MetricPoint, want ...float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected values %v, got %v", want, values(got))
	}
	for i := range want {
		if got[i].Value != want[i] {
			t.Fatalf("expected values %v, got %v", want, values(got))
		}
	}
}
