package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vitalwatch/internal/models"
	"vitalwatch/internal/services"

	"github.com/gin-gonic/gin"
)

// setupRouter installs a fresh engine holding one cpu point 1h old and one 1m old
func setupRouter(t *testing.T) (*gin.Engine, *services.HistoryEngine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Now()
	engine := services.InitHistoryEngine(services.EngineOptions{Now: func() time.Time { return now }})
	_ = engine.RecordReading(models.FamilyCPU, models.Reading{Timestamp: now.Add(-time.Hour).UnixMilli(), Value: 10})
	_ = engine.RecordReading(models.FamilyCPU, models.Reading{Timestamp: now.Add(-time.Minute).UnixMilli(), Value: 20})
	engine.RecordNetwork(models.NetworkReading{Timestamp: now.UnixMilli(), BytesSentMB: 5, BytesRecvMB: 7})

	r := gin.New()
	RegisterHistoryRoutes(r)
	RegisterWebSocketRoutes(r)
	return r, engine
}

func doRequest(r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type seriesResponse struct {
	Series string               `json:"series"`
	Hours  float64              `json:"hours"`
	Data   []models.MetricPoint `json:"data"`
}

func TestGetAllHistory(t *testing.T) {
	r, _ := setupRouter(t)

	w := doRequest(r, http.MethodGet, "/api/history?hours=0.5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Hours float64                     `json:"hours"`
		Data  models.HistoricalDataWindow `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Hours != 0.5 {
		t.Errorf("expected hours=0.5, got %v", resp.Hours)
	}
	if len(resp.Data[models.SeriesCPU]) != 1 {
		t.Errorf("expected 1 cpu point in the last 30m, got %d", len(resp.Data[models.SeriesCPU]))
	}
	if len(resp.Data[models.SeriesNetworkSent]) != 1 {
		t.Errorf("expected 1 networkSent point, got %d", len(resp.Data[models.SeriesNetworkSent]))
	}
}

func TestGetAllHistoryDefaultsToViewWindow(t *testing.T) {
	r, _ := setupRouter(t)

	w := doRequest(r, http.MethodGet, "/api/history", nil)
	var resp struct {
		Hours float64 `json:"hours"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Hours != 2 {
		t.Errorf("expected default hours=2, got %v", resp.Hours)
	}
}

func TestGetHistoryInvalidHours(t *testing.T) {
	r, _ := setupRouter(t)

	for _, q := range []string{"abc", "0", "-1", "25"} {
		w := doRequest(r, http.MethodGet, "/api/history?hours="+q, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("hours=%s: expected 400, got %d", q, w.Code)
		}
	}
}

func TestGetSeries(t *testing.T) {
	r, _ := setupRouter(t)

	w := doRequest(r, http.MethodGet, "/api/history/cpu", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp seriesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Data) != 2 {
		t.Errorf("expected full cpu buffer of 2 points, got %d", len(resp.Data))
	}

	w = doRequest(r, http.MethodGet, "/api/history/net-sent", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.Series != string(models.SeriesNetworkSent) {
		t.Errorf("expected alias to resolve to networkSent, got %d %q", w.Code, resp.Series)
	}

	w = doRequest(r, http.MethodGet, "/api/history/gpu", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown series, got %d", w.Code)
	}
}

func TestGetSeriesWindow(t *testing.T) {
	r, _ := setupRouter(t)

	w := doRequest(r, http.MethodGet, "/api/history/cpu/window?hours=0.5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp seriesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Data) != 1 || resp.Data[0].Value != 20 {
		t.Errorf("expected [20], got %+v", resp.Data)
	}
}

func TestGetStatusAndLatest(t *testing.T) {
	r, _ := setupRouter(t)

	w := doRequest(r, http.MethodGet, "/api/status", nil)
	var status services.Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Loading || status.AppendCount != 3 || status.Points[models.SeriesCPU] != 2 {
		t.Errorf("unexpected status %+v", status)
	}

	w = doRequest(r, http.MethodGet, "/api/latest", nil)
	var latest struct {
		Latest map[models.SeriesName]models.MetricPoint `json:"latest"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &latest)
	if latest.Latest[models.SeriesCPU].Value != 20 {
		t.Errorf("expected latest cpu 20, got %v", latest.Latest[models.SeriesCPU].Value)
	}
}

func TestConfigEndpoints(t *testing.T) {
	r, engine := setupRouter(t)

	w := doRequest(r, http.MethodGet, "/api/config", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doRequest(r, http.MethodPut, "/api/config", []byte(`{"view_window_hours":0.5}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if engine.PollingConfig().ViewWindowHours != 0.5 {
		t.Errorf("expected view window 0.5, got %v", engine.PollingConfig().ViewWindowHours)
	}

	// An invalid field rejects the whole update
	w = doRequest(r, http.MethodPut, "/api/config", []byte(`{"interval_ms":7000,"view_window_hours":4}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if engine.PollingConfig().ViewWindowHours != 0.5 {
		t.Errorf("rejected update must not apply, got %v", engine.PollingConfig().ViewWindowHours)
	}

	w = doRequest(r, http.MethodPut, "/api/config", []byte(`{bad`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", w.Code)
	}

	// No scheduler attached: the interval is recorded without a restart
	w = doRequest(r, http.MethodPut, "/api/config", []byte(`{"interval_ms":10000}`))
	if w.Code != http.StatusOK || engine.PollingConfig().IntervalMs != 10000 {
		t.Errorf("expected interval 10000, got %d (%d)", engine.PollingConfig().IntervalMs, w.Code)
	}
}

func TestConfigUpdateRestartFailureChangesNothing(t *testing.T) {
	r, engine := setupRouter(t)
	// A scheduler that was never started cannot restart
	engine.AttachScheduler(services.NewScheduler(nil, engine))

	w := doRequest(r, http.MethodPut, "/api/config", []byte(`{"interval_ms":30000,"view_window_hours":4}`))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}

	cfg := engine.PollingConfig()
	if cfg.IntervalMs != 5000 || cfg.ViewWindowHours != 2 {
		t.Errorf("failed update must leave config untouched, got %+v", cfg)
	}
}

func TestWebSocketWithoutHub(t *testing.T) {
	r, _ := setupRouter(t)

	w := doRequest(r, http.MethodGet, "/ws", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}
