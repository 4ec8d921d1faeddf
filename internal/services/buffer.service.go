package services

import (
	"time"

	"vitalwatch/internal/models"
)

// SeriesBuffer is a fixed-capacity ring of points for one series.
// Appends evict the oldest point once full; age-based eviction only
// happens in Restore.
type SeriesBuffer struct {
	points []models.MetricPoint
	head   int
	count  int
}

// NewSeriesBuffer creates a buffer holding at most capacity points
func NewSeriesBuffer(capacity int) *SeriesBuffer {
	if capacity <= 0 {
		capacity = models.MaxPoints
	}
	return &SeriesBuffer{
		points: make([]models.MetricPoint, capacity),
	}
}

// Cap returns the maximum number of points kept
func (b *SeriesBuffer) Cap() int {
	return len(b.points)
}

// Len returns the number of points currently held
func (b *SeriesBuffer) Len() int {
	return b.count
}

// Append adds p as the newest point, dropping the oldest if full
func (b *SeriesBuffer) Append(p models.MetricPoint) {
	if b.count < len(b.points) {
		b.count++
	} else {
		b.head = (b.head + 1) % len(b.points)
	}

	idx := (b.head + b.count - 1) % len(b.points)
	b.points[idx] = p
}

// Restore replaces the contents with the points younger than retention,
// keeping at most Cap of the newest
func (b *SeriesBuffer) Restore(points []models.MetricPoint, retention time.Duration, now time.Time) {
	cutoff := now.Add(-retention).UnixMilli()

	b.head = 0
	b.count = 0
	for _, p := range points {
		if p.Timestamp > cutoff {
			b.Append(p)
		}
	}
}

// Points returns all points oldest first. The slice is a copy.
func (b *SeriesBuffer) Points() []models.MetricPoint {
	result := make([]models.MetricPoint, b.count)
	for i := 0; i < b.count; i++ {
		result[i] = b.at(i)
	}
	return result
}

// Last returns the newest point, or false if the buffer is empty
func (b *SeriesBuffer) Last() (models.MetricPoint, bool) {
	if b.count == 0 {
		return models.MetricPoint{}, false
	}
	return b.at(b.count - 1), true
}

// at returns the i-th point in chronological order
func (b *SeriesBuffer) at(i int) models.MetricPoint {
	return b.points[(b.head+i)%len(b.points)]
}
