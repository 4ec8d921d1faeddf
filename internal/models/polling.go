package models

import (
	"errors"
	"time"
)

var (
	ErrInvalidInterval   = errors.New("polling interval must be one of 5000, 10000, 30000, 60000 ms")
	ErrInvalidViewWindow = errors.New("view window must be one of the supported hour values")
)

const (
	// RetentionWindow is the maximum age a point may have when restored
	RetentionWindow = 24 * time.Hour
	// MinPollInterval is the fastest supported cadence
	MinPollInterval = 5 * time.Second
	// MaxPoints caps every series: the fastest cadence over the full retention window
	MaxPoints = int(RetentionWindow / MinPollInterval)

	DefaultIntervalMs      int64   = 5000
	DefaultViewWindowHours float64 = 2
)

// PollingIntervals are the selectable cadences in milliseconds
var PollingIntervals = []int64{5000, 10000, 30000, 60000}

// ViewWindows are the selectable trailing display windows in hours
var ViewWindows = []float64{0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5, 5.5, 6, 8, 10, 12, 18, 24}

// PollingConfig is the process-wide cadence and display window
type PollingConfig struct {
	IntervalMs      int64   `json:"interval_ms"`
	ViewWindowHours float64 `json:"view_window_hours"`
}

// Interval returns the cadence as a time.Duration
func (p PollingConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

// DefaultPollingConfig returns 5 second polling with a 2 hour window
func DefaultPollingConfig() PollingConfig {
	return PollingConfig{
		IntervalMs:      DefaultIntervalMs,
		ViewWindowHours: DefaultViewWindowHours,
	}
}

// ValidateInterval checks that ms is an enumerated cadence
func ValidateInterval(ms int64) error {
	for _, v := range PollingIntervals {
		if v == ms {
			return nil
		}
	}
	return ErrInvalidInterval
}

// ValidateViewWindow checks that hours is an enumerated window
func ValidateViewWindow(hours float64) error {
	for _, v := range ViewWindows {
		if v == hours {
			return nil
		}
	}
	return ErrInvalidViewWindow
}

// Validate checks both fields
func (p PollingConfig) Validate() error {
	if err := ValidateInterval(p.IntervalMs); err != nil {
		return err
	}
	return ValidateViewWindow(p.ViewWindowHours)
}
