package autoresponse

import (
	"context"
	"sync"
	"time"
)

// Task is the work run when a scheduled response fires.
type Task func(ctx context.Context)

// Scheduler owns the pending automatic-response timers. Each task fires at
// most once and is never retried.
type Scheduler struct {
	mu      sync.Mutex
	pending map[*Handle]struct{}
	running sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		pending: make(map[*Handle]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Handle controls one scheduled task.
type Handle struct {
	TicketID string
	FireAt   time.Time

	s     *Scheduler
	timer *time.Timer
	done  chan struct{}
	once  sync.Once
	fired bool
}

// Schedule runs task after delay. After Stop, Schedule returns an already
// cancelled handle.
func (s *Scheduler) Schedule(ticketID string, delay time.Duration, task Task) *Handle {
	h := &Handle{
		TicketID: ticketID,
		FireAt:   time.Now().Add(delay),
		s:        s,
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		h.finish()
		return h
	}
	s.pending[h] = struct{}{}
	h.timer = time.AfterFunc(delay, func() { s.fire(h, task) })
	return h
}

func (s *Scheduler) fire(h *Handle, task Task) {
	s.mu.Lock()
	if _, ok := s.pending[h]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, h)
	h.fired = true
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()
	defer h.finish()
	task(s.ctx)
}

// Cancel stops a task that has not fired yet. It reports whether the task
// was prevented from running.
func (h *Handle) Cancel() bool {
	if h == nil || h.s == nil {
		return false
	}
	s := h.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[h]; !ok {
		return false
	}
	delete(s.pending, h)
	h.timer.Stop()
	h.finish()
	return true
}

// Done is closed once the task has run or been cancelled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Fired reports whether the task ran. Only meaningful after Done is closed.
func (h *Handle) Fired() bool {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.fired
}

func (h *Handle) finish() {
	h.once.Do(func() { close(h.done) })
}

// Pending returns the number of tasks waiting to fire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels every pending task, waits for running tasks to return, and
// rejects further scheduling. It returns how many pending tasks never ran.
func (s *Scheduler) Stop() int {
	s.mu.Lock()
	s.stopped = true
	dropped := len(s.pending)
	for h := range s.pending {
		h.timer.Stop()
		h.finish()
		delete(s.pending, h)
	}
	s.mu.Unlock()

	s.running.Wait()
	s.cancel()
	return dropped
}
