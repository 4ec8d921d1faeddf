package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vitalwatch/internal/models"
)

// producer serves canned bodies per metric family
func producer(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		family := strings.TrimPrefix(r.URL.Path, "/api/metrics/")
		body, ok := bodies[family]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSourceFetchAll(t *testing.T) {
	srv := producer(t, map[string]string{
		"cpu":     `{"timestamp":"2026-02-10T12:00:00Z","cpu_percent":42.5,"cpu_count":8,"cpu_freq":2400}`,
		"memory":  `{"timestamp":"2026-02-10T12:00:00Z","memory_percent":61,"memory_available_mb":4096,"memory_total_mb":16384}`,
		"disk":    `{"timestamp":"2026-02-10T12:00:00Z","disk_percent":70.1,"disk_free_gb":100,"disk_total_gb":500}`,
		"network": `{"timestamp":"2026-02-10T12:00:00Z","bytes_sent_mb":1000,"bytes_recv_mb":2500,"packets_sent":10,"packets_recv":20}`,
	})
	src := NewHTTPSource(srv.URL+"/", time.Second)
	ctx := context.Background()
	wantTS := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC).UnixMilli()

	cpu, err := src.FetchCPU(ctx)
	if err != nil {
		t.Fatalf("FetchCPU: %v", err)
	}
	if cpu.Value != 42.5 || cpu.Timestamp != wantTS {
		t.Errorf("unexpected cpu reading %+v", cpu)
	}
	if cpu.Extra["cpu_count"] != 8 || cpu.Extra["cpu_freq"] != 2400 {
		t.Errorf("unexpected cpu extra %v", cpu.Extra)
	}

	mem, err := src.FetchMemory(ctx)
	if err != nil || mem.Value != 61 {
		t.Errorf("FetchMemory: %+v, %v", mem, err)
	}

	disk, err := src.FetchDisk(ctx)
	if err != nil || disk.Value != 70.1 {
		t.Errorf("FetchDisk: %+v, %v", disk, err)
	}

	network, err := src.FetchNetwork(ctx)
	if err != nil {
		t.Fatalf("FetchNetwork: %v", err)
	}
	if network.BytesSentMB != 1000 || network.BytesRecvMB != 2500 {
		t.Errorf("unexpected network reading %+v", network)
	}
}

func TestHTTPSourceFailures(t *testing.T) {
	srv := producer(t, map[string]string{
		"cpu":    `{"timestamp":"2026-02-10T12:00:00Z","cpu_percent":`,
		"memory": `{"timestamp":"2026-02-10T12:00:00Z"}`,
		"disk":   `{"timestamp":"yesterday","disk_percent":1}`,
	})
	src := NewHTTPSource(srv.URL, time.Second)
	ctx := context.Background()

	tests := []struct {
		name  string
		fetch func() error
		want  models.Family
	}{
		{"malformed body", func() error { _, err := src.FetchCPU(ctx); return err }, models.FamilyCPU},
		{"missing field", func() error { _, err := src.FetchMemory(ctx); return err }, models.FamilyMemory},
		{"bad timestamp", func() error { _, err := src.FetchDisk(ctx); return err }, models.FamilyDisk},
		{"non-2xx", func() error { _, err := src.FetchNetwork(ctx); return err }, models.FamilyNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fetch()
			var ferr *FetchError
			if !errors.As(err, &ferr) {
				t.Fatalf("expected FetchError, got %v", err)
			}
			if ferr.Family != tt.want {
				t.Errorf("expected family %s, got %s", tt.want, ferr.Family)
			}
			if !strings.Contains(err.Error(), "API request failed") {
				t.Errorf("unexpected message %q", err.Error())
			}
		})
	}
}

func TestHTTPSourceTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPSource(url, time.Second).FetchCPU(context.Background())
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError on refused connection, got %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	local := time.Date(2026, 2, 10, 12, 0, 0, 123456000, time.Local).UnixMilli()

	tests := []struct {
		in   string
		want int64
	}{
		{"2026-02-10T12:00:00Z", time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC).UnixMilli()},
		{"2026-02-10T12:00:00.5+02:00", time.Date(2026, 2, 10, 10, 0, 0, 500000000, time.UTC).UnixMilli()},
		{"2026-02-10T12:00:00.123456", local},
		{"2026-02-10 12:00:00.123456", local},
	}

	for _, tt := range tests {
		got, err := parseTimestamp(tt.in)
		if err != nil {
			t.Errorf("parseTimestamp(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseTimestamp(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if _, err := parseTimestamp(""); err == nil {
		t.Error("expected error for empty timestamp")
	}
}
