// Package engine provides the single control loop that owns every registry
// mutation. Network I/O runs elsewhere and posts its completion back here, so
// mutations are applied one at a time in arrival order.
package engine

import (
	"context"
	"log/slog"
	"sync"

	errs "github.com/reshetovitsme/livewatch/internal/shared/errors"
	"github.com/samber/oops"
)

const defaultQueueSize = 256

// Loop runs posted tasks sequentially on one goroutine.
type Loop struct {
	tasks  chan func()
	done   chan struct{}
	logger *slog.Logger

	runMu   sync.Mutex
	running bool
	stop    sync.Once
}

// NewLoop creates a loop with a bounded task queue.
func NewLoop(queueSize int, logger *slog.Logger) *Loop {
	if queueSize < 1 {
		queueSize = defaultQueueSize
	}
	return &Loop{
		tasks:  make(chan func(), queueSize),
		done:   make(chan struct{}),
		logger: logger.With("component", "loop"),
	}
}

// Run executes tasks until ctx is cancelled. It may only be called once.
func (l *Loop) Run(ctx context.Context) error {
	l.runMu.Lock()
	if l.running {
		l.runMu.Unlock()
		return oops.In("engine").Errorf("loop already running")
	}
	l.running = true
	l.runMu.Unlock()

	defer l.stop.Do(func() { close(l.done) })

	l.logger.Info("control loop started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("control loop stopped")
			return ctx.Err()
		case task := <-l.tasks:
			l.execute(task)
		}
	}
}

func (l *Loop) execute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", "panic", r)
		}
	}()
	task()
}

// Post queues fn for execution on the loop. It blocks while the queue is full
// and returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return errs.ErrLoopStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return errs.ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
