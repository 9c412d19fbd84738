package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

// Handler runs one scheduled cycle for a feed
type Handler func(ctx context.Context, feedID string)

type job struct {
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// Scheduler keeps one repeating timer per feed, reconciled against a table
// of desired intervals. A feed's previous timer is always stopped before a
// new one is registered.
type Scheduler struct {
	handler  Handler
	mu       sync.Mutex
	jobs     map[string]*job
	draining map[*job]struct{} // cancelled, cycle possibly still running
	ctx      context.Context
	stop     context.CancelFunc
	logger   *logger.Logger
}

// New creates a scheduler that calls handler on every tick
func New(handler Handler, logger *logger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		handler:  handler,
		jobs:     make(map[string]*job),
		draining: make(map[*job]struct{}),
		ctx:      ctx,
		stop:     cancel,
		logger:   logger.WithComponent("scheduler"),
	}
}

// Reconcile makes the registered timers match intents exactly: timers for
// feeds missing from intents are cancelled, changed intervals are replaced
// and new feeds are scheduled.
func (s *Scheduler) Reconcile(intents map[string]time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for feedID := range s.jobs {
		if _, ok := intents[feedID]; !ok {
			s.cancelLocked(feedID)
		}
	}
	for feedID, interval := range intents {
		s.scheduleLocked(feedID, interval)
	}
}

// Schedule registers or replaces the timer of one feed
func (s *Scheduler) Schedule(feedID string, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked(feedID, interval)
}

// Cancel stops the timer of one feed
func (s *Scheduler) Cancel(feedID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(feedID)
}

// Intents returns the currently registered intervals
func (s *Scheduler) Intents() map[string]time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Duration, len(s.jobs))
	for feedID, j := range s.jobs {
		out[feedID] = j.interval
	}
	return out
}

// Stop cancels every timer and waits for running cycles to return,
// including cycles of feeds cancelled earlier.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	pending := make([]*job, 0, len(s.jobs)+len(s.draining))
	for _, j := range s.jobs {
		pending = append(pending, j)
	}
	for j := range s.draining {
		pending = append(pending, j)
	}
	s.jobs = make(map[string]*job)
	s.mu.Unlock()

	s.stop()
	for _, j := range pending {
		<-j.done
	}
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) scheduleLocked(feedID string, interval time.Duration) {
	if interval <= 0 {
		s.cancelLocked(feedID)
		return
	}
	if existing, ok := s.jobs[feedID]; ok {
		if existing.interval == interval {
			return
		}
		s.cancelLocked(feedID)
	}
	if s.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	j := &job{interval: interval, cancel: cancel, done: make(chan struct{})}
	s.jobs[feedID] = j

	go s.run(ctx, feedID, j)
	s.logger.Info("Scheduled feed", "feed_id", feedID, "interval", interval.String())
}

func (s *Scheduler) cancelLocked(feedID string) {
	j, ok := s.jobs[feedID]
	if !ok {
		return
	}
	delete(s.jobs, feedID)
	s.draining[j] = struct{}{}
	j.cancel()
	s.logger.Info("Cancelled feed schedule", "feed_id", feedID)
}

func (s *Scheduler) run(ctx context.Context, feedID string, j *job) {
	defer func() {
		s.mu.Lock()
		delete(s.draining, j)
		s.mu.Unlock()
		close(j.done)
	}()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.handler(ctx, feedID)
		case <-ctx.Done():
			return
		}
	}
}
