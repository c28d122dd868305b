package transcode

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// ErrQueueFull is returned by Enqueue when the admission queue has no room.
var ErrQueueFull = errors.New("transcode queue is full")

// ErrSchedulerStopped is returned by Enqueue after Stop has been called.
var ErrSchedulerStopped = errors.New("scheduler is stopped")

// Scheduler feeds pending items to a fixed pool of workers. Admission is
// FIFO and each item id has at most one live job at a time, covering both
// the queued and the running phase.
type Scheduler struct {
	pipeline *Pipeline
	logger   *slog.Logger
	queue    chan string
	workers  int

	mu      sync.Mutex
	active  map[string]struct{}
	started bool
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(pipeline *Pipeline, logger *slog.Logger, workers, queueSize int) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Scheduler{
		pipeline: pipeline,
		logger:   logger.With(logging.String(logging.FieldComponent, "scheduler")),
		queue:    make(chan string, queueSize),
		workers:  workers,
		active:   make(map[string]struct{}),
	}
}

// Start launches the worker pool. It is an error to start twice.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler already started")
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(runCtx, i)
	}
	s.logger.Info("scheduler started",
		logging.Int("workers", s.workers),
		logging.Int("queue_size", cap(s.queue)))
	return nil
}

// Enqueue admits an item for processing. Admitting an id that is already
// queued or running is a silent no-op.
func (s *Scheduler) Enqueue(itemID string) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrSchedulerStopped
	}
	if _, exists := s.active[itemID]; exists {
		s.mu.Unlock()
		return nil
	}
	s.active[itemID] = struct{}{}
	s.mu.Unlock()

	select {
	case s.queue <- itemID:
		return nil
	default:
		s.release(itemID)
		return services.Wrap(services.ErrValidation, "scheduler", "enqueue", "admission queue is full", ErrQueueFull)
	}
}

// Stop halts admission, cancels running jobs and waits for the workers.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped || !s.started {
		s.stopped = true
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Depth reports how many items are currently queued or running.
func (s *Scheduler) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Scheduler) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	log := s.logger.With(logging.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			return
		case itemID := <-s.queue:
			if err := s.pipeline.Run(ctx, itemID); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("job aborted",
					logging.String(logging.FieldItemID, itemID),
					logging.Error(err))
			}
			s.release(itemID)
		}
	}
}

func (s *Scheduler) release(itemID string) {
	s.mu.Lock()
	delete(s.active, itemID)
	s.mu.Unlock()
}
