package events

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Event names emitted across the routing pipeline. Handlers and services
// reference these constants so log consumers can key on stable names.
const (
	RouteOrderStart     = "route_order.start"
	RouteOrderSuccess   = "route_order.success"
	RouteOrderFailure   = "route_order.failure"
	ConfirmOrderStart   = "confirm_order.start"
	ConfirmOrderSuccess = "confirm_order.success"
	ConfirmOrderFailure = "confirm_order.failure"
	CancelOrderStart    = "cancel_order.start"
	CancelOrderSuccess  = "cancel_order.success"
	CancelOrderFailure  = "cancel_order.failure"
	FailoverAttempt     = "failover.attempt"
	FailoverSuccess     = "failover.success"
	FailoverFailure     = "failover.failure"
	RecordOutcome       = "record_outcome"
	ScoringDecision     = "scoring_decision"
)

// Event is one structured observability record. Fields must never contain
// payment tokens or raw address data; addresses reduce to the state code at
// the emit site.
type Event struct {
	Name       string
	RequestID  string
	OrderID    string
	ProviderID string
	DurationMs int64
	Fields     map[string]interface{}
}

// Service drains events to the structured log through a bounded buffer.
// Emission never blocks the request path: when the buffer is full the event
// is dropped and counted.
type Service struct {
	logger      *zap.Logger
	eventChan   chan *Event
	workerCount int
	bufferSize  int
	dropped     atomic.Uint64
	wg          sync.WaitGroup
	started     bool
	mu          sync.Mutex
}

// Config holds configuration for the events service
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent drain workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1024,
		WorkerCount: 2,
	}
}

// NewService creates a new events service
func NewService(logger *zap.Logger, config Config) *Service {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}

	return &Service{
		logger:      logger,
		eventChan:   make(chan *Event, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
	}
}

// Start starts the background drain workers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("events service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started events service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the events service, draining pending events
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("events service not started")
	}
	s.started = false
	s.mu.Unlock()

	s.logger.Info("stopping events service", zap.Int("pending_events", len(s.eventChan)))

	close(s.eventChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("events service stopped gracefully",
			zap.Uint64("dropped_total", s.dropped.Load()))
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("events service stop timeout after %v", timeout)
	}
}

// Emit queues an event without blocking. Full buffer drops the event and
// increments the drop counter; drops surface in the log at a sampled rate.
func (s *Service) Emit(event *Event) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		s.logger.Debug("events service not started, event discarded", zap.String("event", event.Name))
		return
	}
	s.mu.Unlock()

	select {
	case s.eventChan <- event:
	default:
		dropped := s.dropped.Add(1)
		if dropped == 1 || dropped%100 == 0 {
			s.logger.Warn("event buffer full, dropping events",
				zap.String("event", event.Name),
				zap.Uint64("dropped_total", dropped))
		}
	}
}

// Dropped returns the number of events dropped since startup
func (s *Service) Dropped() uint64 {
	return s.dropped.Load()
}

// worker drains events to the structured log
func (s *Service) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("events worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		s.process(event)
	}

	s.logger.Debug("events worker stopped", zap.Int("worker_id", id))
}

// process writes one event to the log
func (s *Service) process(event *Event) {
	fields := make([]zap.Field, 0, len(event.Fields)+4)
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if event.OrderID != "" {
		fields = append(fields, zap.String("order_id", event.OrderID))
	}
	if event.ProviderID != "" {
		fields = append(fields, zap.String("provider_id", event.ProviderID))
	}
	if event.DurationMs > 0 {
		fields = append(fields, zap.Int64("duration_ms", event.DurationMs))
	}
	for key, value := range event.Fields {
		fields = append(fields, zap.Any(key, value))
	}

	s.logger.Info(event.Name, fields...)
}

// GetStats returns statistics about the events service
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started,
		Dropped:       s.dropped.Load(),
	}
}

// Stats represents events service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
	Dropped       uint64
}
