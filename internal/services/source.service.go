package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vitalwatch/internal/models"
)

// FetchError is a failed read of one metric family. The scheduler surfaces
// it as the last error and keeps polling.
type FetchError struct {
	Family models.Family
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s API request failed: %v", e.Family, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// Source reads one sample per call from each metric family
type Source interface {
	FetchCPU(ctx context.Context) (models.Reading, error)
	FetchMemory(ctx context.Context) (models.Reading, error)
	FetchDisk(ctx context.Context) (models.Reading, error)
	FetchNetwork(ctx context.Context) (models.NetworkReading, error)
}

var errMissingField = errors.New("missing field")

// HTTPSource polls the producer's /api/metrics endpoints on a remote host
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a source for baseURL. timeout bounds each request;
// zero means no client-side limit.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchCPU returns the current CPU usage percentage
func (s *HTTPSource) FetchCPU(ctx context.Context) (models.Reading, error) {
	var body models.CPUMetrics
	if err := s.getJSON(ctx, models.FamilyCPU, &body); err != nil {
		return models.Reading{}, err
	}
	if body.CPUPercent == nil {
		return models.Reading{}, &FetchError{Family: models.FamilyCPU, Cause: fmt.Errorf("cpu_percent: %w", errMissingField)}
	}

	ts, err := parseTimestamp(body.Timestamp)
	if err != nil {
		return models.Reading{}, &FetchError{Family: models.FamilyCPU, Cause: err}
	}

	extra := map[string]float64{"cpu_count": float64(body.CPUCount)}
	if body.CPUFreq != nil {
		extra["cpu_freq"] = *body.CPUFreq
	}

	return models.Reading{Timestamp: ts, Value: *body.CPUPercent, Extra: extra}, nil
}

// FetchMemory returns the current memory usage percentage
func (s *HTTPSource) FetchMemory(ctx context.Context) (models.Reading, error) {
	var body models.MemoryMetrics
	if err := s.getJSON(ctx, models.FamilyMemory, &body); err != nil {
		return models.Reading{}, err
	}
	if body.MemoryPercent == nil {
		return models.Reading{}, &FetchError{Family: models.FamilyMemory, Cause: fmt.Errorf("memory_percent: %w", errMissingField)}
	}

	ts, err := parseTimestamp(body.Timestamp)
	if err != nil {
		return models.Reading{}, &FetchError{Family: models.FamilyMemory, Cause: err}
	}

	return models.Reading{
		Timestamp: ts,
		Value:     *body.MemoryPercent,
		Extra: map[string]float64{
			"memory_available_mb": body.MemoryAvailableMB,
			"memory_total_mb":     body.MemoryTotalMB,
		},
	}, nil
}

// FetchDisk returns the current disk usage percentage
func (s *HTTPSource) FetchDisk(ctx context.Context) (models.Reading, error) {
	var body models.DiskMetrics
	if err := s.getJSON(ctx, models.FamilyDisk, &body); err != nil {
		return models.Reading{}, err
	}
	if body.DiskPercent == nil {
		return models.Reading{}, &FetchError{Family: models.FamilyDisk, Cause: fmt.Errorf("disk_percent: %w", errMissingField)}
	}

	ts, err := parseTimestamp(body.Timestamp)
	if err != nil {
		return models.Reading{}, &FetchError{Family: models.FamilyDisk, Cause: err}
	}

	return models.Reading{
		Timestamp: ts,
		Value:     *body.DiskPercent,
		Extra: map[string]float64{
			"disk_free_gb":  body.DiskFreeGB,
			"disk_total_gb": body.DiskTotalGB,
		},
	}, nil
}

// FetchNetwork returns the cumulative sent/received megabytes
func (s *HTTPSource) FetchNetwork(ctx context.Context) (models.NetworkReading, error) {
	var body models.NetworkMetrics
	if err := s.getJSON(ctx, models.FamilyNetwork, &body); err != nil {
		return models.NetworkReading{}, err
	}
	if body.BytesSentMB == nil || body.BytesRecvMB == nil {
		return models.NetworkReading{}, &FetchError{Family: models.FamilyNetwork, Cause: fmt.Errorf("bytes_sent_mb/bytes_recv_mb: %w", errMissingField)}
	}

	ts, err := parseTimestamp(body.Timestamp)
	if err != nil {
		return models.NetworkReading{}, &FetchError{Family: models.FamilyNetwork, Cause: err}
	}

	return models.NetworkReading{
		Timestamp:   ts,
		BytesSentMB: *body.BytesSentMB,
		BytesRecvMB: *body.BytesRecvMB,
		Extra: map[string]float64{
			"packets_sent": float64(body.PacketsSent),
			"packets_recv": float64(body.PacketsRecv),
		},
	}, nil
}

// getJSON issues one GET for family and decodes the body into out.
// Every failure comes back as a *FetchError.
func (s *HTTPSource) getJSON(ctx context.Context, family models.Family, out interface{}) error {
	url := s.baseURL + "/api/metrics/" + string(family)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &FetchError{Family: family, Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &FetchError{Family: family, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &FetchError{Family: family, Cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Family: family, Cause: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Layouts for producer timestamps without a zone offset, e.g. the
// "2026-02-10T12:00:00.123456" form. These are read in local time.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp converts an ISO-8601 string to epoch millis
func parseTimestamp(value string) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("timestamp: %w", errMissingField)
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UnixMilli(), nil
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("invalid timestamp %q", value)
}
