// Package monitor samples the driver status on an interval, keeps the
// latest sample in a status file and forwards samples to InfluxDB.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/compassradar/extension/internal/driver"
	"github.com/compassradar/extension/internal/influx"
	"github.com/compassradar/extension/internal/queue"
)

// StatusSource reports the current driver status.
type StatusSource interface {
	Status() driver.Status
}

// PointWriter receives one point per sample, e.g. *influx.Manager.
type PointWriter interface {
	WritePoint(p *influxdb2_write.Point) error
}

// Sample is one status reading.
type Sample struct {
	Time   time.Time     `json:"time"`
	Status driver.Status `json:"status"`
}

// MaxPending bounds how many unsent samples are kept for retry.
const MaxPending = 360

// Dependencies holds all dependencies for the monitor service. Writer and
// StatusPath are optional.
type Dependencies struct {
	Source     StatusSource
	Writer     PointWriter
	StatusPath string
	Interval   time.Duration
	Logger     *slog.Logger
}

// Service manages status monitoring
type Service struct {
	deps    Dependencies
	pending *queue.Queue[Sample]
	dropped uint64
	flushMu sync.Mutex
	now     func() time.Time

	mu        sync.RWMutex
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
	last      Sample
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	return &Service{
		deps:    deps,
		pending: queue.New[Sample](MaxPending),
		now:     time.Now,
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Last returns the most recent sample.
func (s *Service) Last() (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, !s.last.Time.IsZero()
}

// Pending returns the number of samples not yet written.
func (s *Service) Pending() int {
	return s.pending.Len()
}

// Collect takes one sample, rewrites the status file and drains pending
// samples to the writer. On a write error the remaining samples stay queued
// and are retried on the next Collect.
func (s *Service) Collect() Sample {
	sample := Sample{Time: s.now(), Status: s.deps.Source.Status()}

	s.mu.Lock()
	s.last = sample
	s.mu.Unlock()

	if s.deps.StatusPath != "" {
		if err := writeStatusFile(s.deps.StatusPath, sample); err != nil {
			s.deps.Logger.Error("Error writing status file", "path", s.deps.StatusPath, "error", err)
		}
	}

	if s.deps.Writer == nil {
		return sample
	}
	s.pending.Push(sample)
	s.mu.Lock()
	lost := s.pending.Dropped() - s.dropped
	s.dropped += lost
	s.mu.Unlock()
	if lost > 0 {
		s.deps.Logger.Warn("Status backlog full, oldest samples dropped", "dropped", lost)
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	batch := s.pending.GetAndEmpty()
	for i, next := range batch {
		if err := s.deps.Writer.WritePoint(influx.StatusPoint(next.Status, next.Time)); err != nil {
			s.pending.PushFront(batch[i:]...)
			s.deps.Logger.Warn("Status write failed, will retry", "pending", len(batch)-i, "error", err)
			break
		}
	}
	return sample
}

func writeStatusFile(path string, sample Sample) error {
	data, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Collect()
			}
		}
	}()
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
