package services

import (
	"math"
	"time"

	"vitalwatch/internal/models"
)

const msPerHour = 3600 * 1000

// WindowCutoff returns the oldest timestamp (epoch ms) included in a
// trailing window of windowHours ending at now
func WindowCutoff(windowHours float64, now time.Time) int64 {
	return now.UnixMilli() - int64(math.Round(windowHours*msPerHour))
}

// Windowed returns the points with timestamp >= now - windowHours, in append
// order. A producer clock step can put an older timestamp after a newer one,
// so every point is checked. The result never aliases the input.
func Windowed(points []models.MetricPoint, windowHours float64, now time.Time) []models.MetricPoint {
	cutoff := WindowCutoff(windowHours, now)

	result := make([]models.MetricPoint, 0, len(points))
	for _, p := range points {
		if p.Timestamp >= cutoff {
			result = append(result, p)
		}
	}
	return result
}
