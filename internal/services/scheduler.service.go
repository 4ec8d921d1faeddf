package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"vitalwatch/internal/models"
)

// ErrSchedulerNotStarted is returned by Restart before Start
var ErrSchedulerNotStarted = errors.New("scheduler not started")

// Recorder receives the outcome of every fetch
type Recorder interface {
	RecordReading(family models.Family, r models.Reading) error
	RecordNetwork(r models.NetworkReading)
	RecordError(family models.Family, err error)
}

// Scheduler runs one polling task per metric family at a shared interval.
// Tasks fire independently; a slow family never delays another.
type Scheduler struct {
	source   Source
	recorder Recorder

	mu       sync.Mutex
	parent   context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	interval time.Duration
	running  bool
}

var _ IntervalRestarter = (*Scheduler)(nil)

// NewScheduler creates a stopped scheduler
func NewScheduler(source Source, recorder Recorder) *Scheduler {
	return &Scheduler{
		source:   source,
		recorder: recorder,
	}
}

// Start launches the four tasks. Each fetches immediately, then every interval.
// The tasks stop when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.parent = ctx
	s.startLocked(interval)
}

// Restart cancels all four tasks, waits for them to exit and starts four new
// ones at interval. The group is replaced as a whole.
func (s *Scheduler) Restart(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.parent == nil {
		return ErrSchedulerNotStarted
	}
	s.stopLocked()
	s.startLocked(interval)
	log.Printf("[SCHED] Polling restarted (interval: %v)", interval)
	return nil
}

// Stop cancels every task and waits for them to exit
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	log.Println("[SCHED] Polling stopped")
}

// Interval returns the current cadence
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Running reports whether tasks are active
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) startLocked(interval time.Duration) {
	ctx, cancel := context.WithCancel(s.parent)
	s.cancel = cancel
	s.interval = interval
	s.running = true

	for _, family := range models.AllFamilies {
		s.wg.Add(1)
		go s.runTask(ctx, family, interval)
	}

	log.Printf("[SCHED] Polling started for %d families (interval: %v)", len(models.AllFamilies), interval)
}

func (s *Scheduler) stopLocked() {
	if !s.running {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.running = false
}

// runTask polls one family until ctx is cancelled
func (s *Scheduler) runTask(ctx context.Context, family models.Family, interval time.Duration) {
	defer s.wg.Done()

	s.poll(ctx, family)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx, family)
		}
	}
}

// poll performs one fetch and hands the result to the recorder. A result
// arriving after cancellation is dropped.
func (s *Scheduler) poll(ctx context.Context, family models.Family) {
	var err error

	switch family {
	case models.FamilyNetwork:
		var reading models.NetworkReading
		reading, err = s.source.FetchNetwork(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			s.recorder.RecordNetwork(reading)
			return
		}
	default:
		var reading models.Reading
		reading, err = s.fetchScalar(ctx, family)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = s.recorder.RecordReading(family, reading)
			if err == nil {
				return
			}
		}
	}

	s.recorder.RecordError(family, err)
}

func (s *Scheduler) fetchScalar(ctx context.Context, family models.Family) (models.Reading, error) {
	switch family {
	case models.FamilyCPU:
		return s.source.FetchCPU(ctx)
	case models.FamilyMemory:
		return s.source.FetchMemory(ctx)
	case models.FamilyDisk:
		return s.source.FetchDisk(ctx)
	default:
		return models.Reading{}, &FetchError{Family: family, Cause: models.ErrUnknownSeries}
	}
}
