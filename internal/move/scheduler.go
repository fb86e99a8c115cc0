package move

import (
	"log/slog"
	"sync"
)

// Scheduler defers work until after the current move has returned.
type Scheduler interface {
	Schedule(fn func())
}

// TickScheduler runs scheduled functions one at a time on a single worker
// goroutine.
type TickScheduler struct {
	queue  chan func()
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *slog.Logger
}

func NewTickScheduler(buffer int, logger *slog.Logger) *TickScheduler {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &TickScheduler{
		queue:  make(chan func(), buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *TickScheduler) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case fn := <-s.queue:
			s.invoke(fn)
		}
	}
}

func (s *TickScheduler) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", "panic", r)
		}
	}()
	fn()
}

// Schedule queues fn. When the queue is full fn runs on its own goroutine.
func (s *TickScheduler) Schedule(fn func()) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.queue <- fn:
	default:
		s.logger.Warn("scheduler queue full, running task on its own goroutine")
		go s.invoke(fn)
	}
}

// Close stops the worker. Queued tasks that have not started are dropped.
func (s *TickScheduler) Close() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}
