package models

import "errors"

// ErrUnknownSeries is returned when a series name does not match any buffer
var ErrUnknownSeries = errors.New("unknown series")

// SeriesName identifies one of the five history buffers
type SeriesName string

const (
	SeriesCPU         SeriesName = "cpu"
	SeriesMemory      SeriesName = "memory"
	SeriesDisk        SeriesName = "disk"
	SeriesNetworkSent SeriesName = "networkSent"
	SeriesNetworkRecv SeriesName = "networkRecv"
)

// AllSeries lists every series in display order
var AllSeries = []SeriesName{
	SeriesCPU,
	SeriesMemory,
	SeriesDisk,
	SeriesNetworkSent,
	SeriesNetworkRecv,
}

// ParseSeries resolves a series name, accepting the dashed network aliases
func ParseSeries(name string) (SeriesName, error) {
	switch name {
	case "cpu":
		return SeriesCPU, nil
	case "memory":
		return SeriesMemory, nil
	case "disk":
		return SeriesDisk, nil
	case "networkSent", "net-sent":
		return SeriesNetworkSent, nil
	case "networkRecv", "net-recv":
		return SeriesNetworkRecv, nil
	default:
		return "", ErrUnknownSeries
	}
}

// MetricPoint is a single sample in a series.
// Value is what gets displayed; RawValue only exists on counter-derived
// series and holds the cumulative reading the next delta is computed from.
type MetricPoint struct {
	Timestamp int64    `json:"timestamp"` // epoch millis
	Value     float64  `json:"value"`
	RawValue  *float64 `json:"rawValue,omitempty"`
}

// HistoricalDataWindow holds a view of every series for the render layer
type HistoricalDataWindow map[SeriesName][]MetricPoint

// SnapshotVersion is the current persisted schema version
const SnapshotVersion = 1

// PersistedSnapshot is the single flat record written to storage
type PersistedSnapshot struct {
	Version   int                          `json:"version"`
	Series    map[SeriesName][]MetricPoint `json:"series"`
	LastSaved int64                        `json:"lastSaved"`
}
