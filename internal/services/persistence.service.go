package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"vitalwatch/internal/models"
)

const (
	// SnapshotKey is the storage key of the persisted history record
	SnapshotKey = "metrics_history_v1"

	// DefaultBatchSize flushes on every 5th append
	DefaultBatchSize = 5
	// DefaultFlushInterval bounds how long appended points stay unsaved
	DefaultFlushInterval = 10 * time.Second
)

// PersistenceError wraps a failed snapshot write. It is logged, never returned
// to the polling path.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RestoreError wraps an unreadable snapshot found at startup
type RestoreError struct {
	Err error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore snapshot: %v", e.Err)
}

func (e *RestoreError) Unwrap() error { return e.Err }

// SnapshotSource provides copies of every series for serialization
type SnapshotSource interface {
	SeriesSnapshot() map[models.SeriesName][]models.MetricPoint
}

// PersistenceOptions tunes the batching policy. Zero values use the defaults.
type PersistenceOptions struct {
	Key           string
	BatchSize     int
	FlushInterval time.Duration
	Now           func() time.Time
}

// PersistenceManager writes all series as one record under a batching policy:
// on every BatchSize-th append, and whenever FlushInterval has passed since
// the last attempt with unsaved points pending.
type PersistenceManager struct {
	storage       Storage
	source        SnapshotSource
	key           string
	batchSize     int
	flushInterval time.Duration
	now           func() time.Time

	writeMu sync.Mutex

	mu          sync.Mutex
	pending     int
	lastAttempt time.Time
	lastSaved   int64
	writes      int
	failures    int
}

// NewPersistenceManager creates a manager reading series from source
func NewPersistenceManager(storage Storage, source SnapshotSource, opts PersistenceOptions) *PersistenceManager {
	if opts.Key == "" {
		opts.Key = SnapshotKey
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &PersistenceManager{
		storage:       storage,
		source:        source,
		key:           opts.Key,
		batchSize:     opts.BatchSize,
		flushInterval: opts.FlushInterval,
		now:           opts.Now,
		lastAttempt:   opts.Now(),
	}
}

// Notify records one append. appendCount is the engine's running total since
// start; a positive multiple of the batch size triggers a write.
func (pm *PersistenceManager) Notify(appendCount int) {
	pm.mu.Lock()
	pm.pending++
	pm.mu.Unlock()

	if appendCount > 0 && appendCount%pm.batchSize == 0 {
		pm.Flush()
	}
}

// Tick writes if points are pending and the flush interval has elapsed
// since the last attempt. It reports whether a write was attempted.
func (pm *PersistenceManager) Tick() bool {
	pm.mu.Lock()
	due := pm.pending > 0 && pm.now().Sub(pm.lastAttempt) >= pm.flushInterval
	pm.mu.Unlock()

	if !due {
		return false
	}
	pm.Flush()
	return true
}

// Run calls Tick once per second until ctx is done, then does a final flush.
// A time-based flush therefore fires up to one second after it is due.
func (pm *PersistenceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	log.Printf("[PERSIST] Batched writer started (batch: %d, interval: %v)", pm.batchSize, pm.flushInterval)

	for {
		select {
		case <-ctx.Done():
			if pm.Pending() > 0 {
				pm.Flush()
			}
			log.Println("[PERSIST] Batched writer stopped")
			return
		case <-ticker.C:
			pm.Tick()
		}
	}
}

// Flush serializes every series and writes the record. Failures are logged
// and swallowed; the returned error is for callers that want to observe it.
func (pm *PersistenceManager) Flush() error {
	pm.writeMu.Lock()
	defer pm.writeMu.Unlock()

	pm.mu.Lock()
	now := pm.now()
	pm.lastAttempt = now
	flushed := pm.pending
	pm.mu.Unlock()

	snapshot := models.PersistedSnapshot{
		Version:   models.SnapshotVersion,
		Series:    pm.source.SeriesSnapshot(),
		LastSaved: now.UnixMilli(),
	}

	err := pm.write(snapshot)

	pm.mu.Lock()
	defer pm.mu.Unlock()
	if err != nil {
		pm.failures++
		log.Printf("[PERSIST] %v", err)
		return err
	}
	pm.pending -= flushed
	pm.lastSaved = snapshot.LastSaved
	pm.writes++
	return nil
}

func (pm *PersistenceManager) write(snapshot models.PersistedSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return &PersistenceError{Op: "marshal", Err: err}
	}
	if err := pm.storage.Set(pm.key, string(data)); err != nil {
		return &PersistenceError{Op: "write", Err: err}
	}
	return nil
}

// Load reads the stored record. A missing record yields an empty snapshot
// and no error; anything unreadable yields an empty snapshot and a
// *RestoreError. Points are sorted by timestamp and invalid ones dropped;
// retention filtering is left to the buffers.
func (pm *PersistenceManager) Load() (*models.PersistedSnapshot, error) {
	empty := &models.PersistedSnapshot{
		Version: models.SnapshotVersion,
		Series:  make(map[models.SeriesName][]models.MetricPoint),
	}

	raw, ok, err := pm.storage.Get(pm.key)
	if err != nil {
		return empty, &RestoreError{Err: err}
	}
	if !ok || raw == "" {
		return empty, nil
	}

	snapshot, err := DecodeSnapshot([]byte(raw))
	if err != nil {
		return empty, &RestoreError{Err: err}
	}

	pm.mu.Lock()
	pm.lastSaved = snapshot.LastSaved
	pm.mu.Unlock()

	return snapshot, nil
}

// storedSnapshot accepts both the versioned layout and the legacy flat
// layout that kept each series as a top-level field
type storedSnapshot struct {
	Version     *int                                       `json:"version"`
	Series      map[models.SeriesName][]models.MetricPoint `json:"series"`
	LastSaved   int64                                      `json:"lastSaved"`
	CPU         []models.MetricPoint                       `json:"cpu"`
	Memory      []models.MetricPoint                       `json:"memory"`
	Disk        []models.MetricPoint                       `json:"disk"`
	NetworkSent []models.MetricPoint                       `json:"networkSent"`
	NetworkRecv []models.MetricPoint                       `json:"networkRecv"`
}

// DecodeSnapshot parses and validates a stored record. Missing series
// default to empty; a malformed record or unknown version is an error.
func DecodeSnapshot(data []byte) (*models.PersistedSnapshot, error) {
	var stored storedSnapshot
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	var series map[models.SeriesName][]models.MetricPoint
	switch {
	case stored.Version == nil:
		series = map[models.SeriesName][]models.MetricPoint{
			models.SeriesCPU:         stored.CPU,
			models.SeriesMemory:      stored.Memory,
			models.SeriesDisk:        stored.Disk,
			models.SeriesNetworkSent: stored.NetworkSent,
			models.SeriesNetworkRecv: stored.NetworkRecv,
		}
	case *stored.Version == models.SnapshotVersion:
		series = stored.Series
	default:
		return nil, fmt.Errorf("unsupported snapshot version %d", *stored.Version)
	}

	snapshot := &models.PersistedSnapshot{
		Version:   models.SnapshotVersion,
		Series:    make(map[models.SeriesName][]models.MetricPoint, len(models.AllSeries)),
		LastSaved: stored.LastSaved,
	}
	for _, name := range models.AllSeries {
		snapshot.Series[name] = cleanPoints(series[name])
	}
	return snapshot, nil
}

// cleanPoints drops points without a usable timestamp and orders the rest
func cleanPoints(points []models.MetricPoint) []models.MetricPoint {
	cleaned := make([]models.MetricPoint, 0, len(points))
	for _, p := range points {
		if p.Timestamp <= 0 || math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}
		cleaned = append(cleaned, p)
	}
	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Timestamp < cleaned[j].Timestamp
	})
	return cleaned
}

// Pending returns the number of appends not yet written
func (pm *PersistenceManager) Pending() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.pending
}

// LastSaved returns the epoch millis of the last successful write, or of the
// restored record before any write
func (pm *PersistenceManager) LastSaved() int64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.lastSaved
}

// Writes returns the number of successful writes
func (pm *PersistenceManager) Writes() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.writes
}

// Failures returns the number of failed write attempts
func (pm *PersistenceManager) Failures() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.failures
}
