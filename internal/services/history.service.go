package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"vitalwatch/internal/models"
)

// IntervalRestarter restarts polling at a new cadence
type IntervalRestarter interface {
	Restart(interval time.Duration) error
}

// EngineOptions configures a HistoryEngine. Zero values use the defaults.
type EngineOptions struct {
	MaxPoints int
	Retention time.Duration
	Polling   models.PollingConfig
	Now       func() time.Time
}

// Status is the render layer's view of engine state
type Status struct {
	Error           string                    `json:"error,omitempty"`
	Loading         bool                      `json:"loading"`
	RestoredCount   int                       `json:"restored_count"`
	IntervalMs      int64                     `json:"interval_ms"`
	ViewWindowHours float64                   `json:"view_window_hours"`
	Points          map[models.SeriesName]int `json:"points"`
	AppendCount     int                       `json:"append_count"`
	LastSaved       int64                     `json:"last_saved,omitempty"`
}

// Snapshot is a full read-only copy of engine state
type Snapshot struct {
	Status Status                      `json:"status"`
	Series models.HistoricalDataWindow `json:"series"`
}

// HistoryEngine owns the five series buffers and everything that mutates them.
// Slow work (fetches, storage writes) happens outside the lock; the lock
// only covers appends and copies.
type HistoryEngine struct {
	// configMu serializes config changes so the stored interval and the
	// scheduler's interval never diverge
	configMu sync.Mutex

	mu            sync.RWMutex
	buffers       map[models.SeriesName]*SeriesBuffer
	sentDelta     *DeltaDeriver
	recvDelta     *DeltaDeriver
	latest        map[models.Family]map[string]float64
	appendCount   int
	lastError     string
	loading       bool
	restoredCount int
	polling       models.PollingConfig
	retention     time.Duration
	now           func() time.Time

	persistence *PersistenceManager
	scheduler   IntervalRestarter
}

var historyEngine *HistoryEngine

// InitHistoryEngine creates the process-wide engine
func InitHistoryEngine(opts EngineOptions) *HistoryEngine {
	historyEngine = NewHistoryEngine(opts)
	return historyEngine
}

// GetHistoryEngine returns the process-wide engine
func GetHistoryEngine() *HistoryEngine {
	return historyEngine
}

// NewHistoryEngine creates an engine with empty buffers
func NewHistoryEngine(opts EngineOptions) *HistoryEngine {
	if opts.MaxPoints <= 0 {
		opts.MaxPoints = models.MaxPoints
	}
	if opts.Retention <= 0 {
		opts.Retention = models.RetentionWindow
	}
	if opts.Polling.IntervalMs == 0 && opts.Polling.ViewWindowHours == 0 {
		opts.Polling = models.DefaultPollingConfig()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	buffers := make(map[models.SeriesName]*SeriesBuffer, len(models.AllSeries))
	for _, name := range models.AllSeries {
		buffers[name] = NewSeriesBuffer(opts.MaxPoints)
	}

	return &HistoryEngine{
		buffers:   buffers,
		sentDelta: NewDeltaDeriver(0),
		recvDelta: NewDeltaDeriver(0),
		latest:    make(map[models.Family]map[string]float64),
		loading:   true,
		polling:   opts.Polling,
		retention: opts.Retention,
		now:       opts.Now,
	}
}

// AttachPersistence sets the manager notified on every append
func (e *HistoryEngine) AttachPersistence(pm *PersistenceManager) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persistence = pm
}

// AttachScheduler sets the scheduler restarted on interval changes
func (e *HistoryEngine) AttachScheduler(s IntervalRestarter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scheduler = s
}

// Restore loads persisted history, drops points older than the retention
// window and seeds the network deltas from the newest restored raw counters.
// It returns the number of points restored; a corrupt record restores nothing.
func (e *HistoryEngine) Restore(pm *PersistenceManager) int {
	snapshot, err := pm.Load()
	if err != nil {
		log.Printf("[PERSIST] %v (starting with empty history)", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	total := 0
	for _, name := range models.AllSeries {
		buf := e.buffers[name]
		buf.Restore(snapshot.Series[name], e.retention, now)
		total += buf.Len()
	}

	e.sentDelta.Seed(lastRaw(e.buffers[models.SeriesNetworkSent]))
	e.recvDelta.Seed(lastRaw(e.buffers[models.SeriesNetworkRecv]))
	e.restoredCount = total

	log.Printf("[PERSIST] Restored %d points from storage", total)
	return total
}

// lastRaw returns the newest point's raw counter, or 0
func lastRaw(buf *SeriesBuffer) float64 {
	p, ok := buf.Last()
	if !ok || p.RawValue == nil {
		return 0
	}
	return *p.RawValue
}

// RecordReading appends a successful cpu, memory or disk sample
func (e *HistoryEngine) RecordReading(family models.Family, r models.Reading) error {
	var name models.SeriesName
	switch family {
	case models.FamilyCPU:
		name = models.SeriesCPU
	case models.FamilyMemory:
		name = models.SeriesMemory
	case models.FamilyDisk:
		name = models.SeriesDisk
	default:
		return fmt.Errorf("record %s: %w", family, models.ErrUnknownSeries)
	}

	e.mu.Lock()
	e.buffers[name].Append(models.MetricPoint{Timestamp: r.Timestamp, Value: r.Value})
	e.latest[family] = r.Extra
	count, pm := e.markSuccessLocked()
	e.mu.Unlock()

	if pm != nil {
		pm.Notify(count)
	}
	return nil
}

// RecordNetwork converts the cumulative counters into deltas and appends
// one point to each network series
func (e *HistoryEngine) RecordNetwork(r models.NetworkReading) {
	e.mu.Lock()
	sent, sentRaw := e.sentDelta.Derive(r.BytesSentMB)
	recv, recvRaw := e.recvDelta.Derive(r.BytesRecvMB)

	e.buffers[models.SeriesNetworkSent].Append(models.MetricPoint{
		Timestamp: r.Timestamp,
		Value:     sent,
		RawValue:  &sentRaw,
	})
	e.buffers[models.SeriesNetworkRecv].Append(models.MetricPoint{
		Timestamp: r.Timestamp,
		Value:     recv,
		RawValue:  &recvRaw,
	})
	e.latest[models.FamilyNetwork] = r.Extra
	count, pm := e.markSuccessLocked()
	e.mu.Unlock()

	if pm != nil {
		pm.Notify(count)
	}
}

// markSuccessLocked advances the append counter and clears the error state
func (e *HistoryEngine) markSuccessLocked() (int, *PersistenceManager) {
	e.appendCount++
	e.lastError = ""
	e.loading = false
	return e.appendCount, e.persistence
}

// RecordError keeps err as the most recent error message
func (e *HistoryEngine) RecordError(family models.Family, err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	e.lastError = err.Error()
	e.mu.Unlock()

	log.Printf("[SCHED] %s fetch failed: %v", family, err)
}

// SeriesSnapshot returns copies of every buffer
func (e *HistoryEngine) SeriesSnapshot() map[models.SeriesName][]models.MetricPoint {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make(map[models.SeriesName][]models.MetricPoint, len(e.buffers))
	for name, buf := range e.buffers {
		result[name] = buf.Points()
	}
	return result
}

// Series returns a copy of the full buffer for name
func (e *HistoryEngine) Series(name models.SeriesName) ([]models.MetricPoint, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	buf, ok := e.buffers[name]
	if !ok {
		return nil, models.ErrUnknownSeries
	}
	return buf.Points(), nil
}

// Windowed returns the trailing windowHours of name
func (e *HistoryEngine) Windowed(name models.SeriesName, windowHours float64) ([]models.MetricPoint, error) {
	points, err := e.Series(name)
	if err != nil {
		return nil, err
	}
	return Windowed(points, windowHours, e.now()), nil
}

// WindowedAll returns the trailing windowHours of every series
func (e *HistoryEngine) WindowedAll(windowHours float64) models.HistoricalDataWindow {
	now := e.now()
	window := models.HistoricalDataWindow{}
	for name, points := range e.SeriesSnapshot() {
		window[name] = Windowed(points, windowHours, now)
	}
	return window
}

// Status returns error, loading and config state plus per-series lengths
func (e *HistoryEngine) Status() Status {
	e.mu.RLock()
	status := e.statusLocked()
	pm := e.persistence
	e.mu.RUnlock()

	if pm != nil {
		status.LastSaved = pm.LastSaved()
	}
	return status
}

func (e *HistoryEngine) statusLocked() Status {
	points := make(map[models.SeriesName]int, len(e.buffers))
	for name, buf := range e.buffers {
		points[name] = buf.Len()
	}

	status := Status{
		Error:           e.lastError,
		Loading:         e.loading,
		RestoredCount:   e.restoredCount,
		IntervalMs:      e.polling.IntervalMs,
		ViewWindowHours: e.polling.ViewWindowHours,
		Points:          points,
		AppendCount:     e.appendCount,
	}
	return status
}

// Snapshot returns the status and every series in one consistent copy
func (e *HistoryEngine) Snapshot() Snapshot {
	e.mu.RLock()
	series := models.HistoricalDataWindow{}
	for name, buf := range e.buffers {
		series[name] = buf.Points()
	}
	status := e.statusLocked()
	pm := e.persistence
	e.mu.RUnlock()

	if pm != nil {
		status.LastSaved = pm.LastSaved()
	}
	return Snapshot{Status: status, Series: series}
}

// Latest returns the newest point of every non-empty series
func (e *HistoryEngine) Latest() map[models.SeriesName]models.MetricPoint {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make(map[models.SeriesName]models.MetricPoint, len(e.buffers))
	for name, buf := range e.buffers {
		if p, ok := buf.Last(); ok {
			result[name] = p
		}
	}
	return result
}

// LatestExtra returns the supplementary fields of the newest reading per family
func (e *HistoryEngine) LatestExtra() map[models.Family]map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make(map[models.Family]map[string]float64, len(e.latest))
	for family, extra := range e.latest {
		copied := make(map[string]float64, len(extra))
		for k, v := range extra {
			copied[k] = v
		}
		result[family] = copied
	}
	return result
}

// PollingConfig returns the current cadence and view window
func (e *HistoryEngine) PollingConfig() models.PollingConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.polling
}

// SetInterval changes the cadence and restarts every polling task.
// If the restart fails the previous interval is kept.
func (e *HistoryEngine) SetInterval(ms int64) error {
	if err := models.ValidateInterval(ms); err != nil {
		return err
	}

	e.configMu.Lock()
	defer e.configMu.Unlock()

	e.mu.Lock()
	previous := e.polling.IntervalMs
	e.polling.IntervalMs = ms
	scheduler := e.scheduler
	e.mu.Unlock()

	if previous == ms || scheduler == nil {
		return nil
	}
	if err := scheduler.Restart(time.Duration(ms) * time.Millisecond); err != nil {
		e.mu.Lock()
		e.polling.IntervalMs = previous
		e.mu.Unlock()
		return fmt.Errorf("restart polling: %w", err)
	}
	return nil
}

// SetViewWindow changes the default display window. Stored data is untouched.
func (e *HistoryEngine) SetViewWindow(hours float64) error {
	if err := models.ValidateViewWindow(hours); err != nil {
		return err
	}

	e.configMu.Lock()
	defer e.configMu.Unlock()

	e.mu.Lock()
	e.polling.ViewWindowHours = hours
	e.mu.Unlock()
	return nil
}
