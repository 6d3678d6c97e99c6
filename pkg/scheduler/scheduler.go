package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrorSink receives the failures of detached tasks.
type ErrorSink interface {
	Capture(task string, err error)
}

// SinkFunc adapts a function to ErrorSink.
type SinkFunc func(task string, err error)

func (f SinkFunc) Capture(task string, err error) { f(task, err) }

// ZapSink logs detached task failures.
func ZapSink(lg *zap.Logger) ErrorSink {
	return SinkFunc(func(task string, err error) {
		lg.Warn("detached task failed", zap.String("task", task), zap.Error(err))
	})
}

// MultiSink fans a failure out to every sink.
func MultiSink(sinks ...ErrorSink) ErrorSink {
	return SinkFunc(func(task string, err error) {
		for _, s := range sinks {
			if s != nil {
				s.Capture(task, err)
			}
		}
	})
}

// Runner runs fire-and-forget work outside any request context. Each task
// gets its own timeout derived from the runner's root context, and any error
// or panic is handed to the sink instead of the caller.
type Runner struct {
	ctx     context.Context
	cancel  context.CancelFunc
	sink    ErrorSink
	timeout time.Duration
	wg      sync.WaitGroup
}

func New(sink ErrorSink, timeout time.Duration) *Runner {
	if sink == nil {
		sink = ZapSink(zap.L())
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{ctx: ctx, cancel: cancel, sink: sink, timeout: timeout}
}

// Go schedules fn and returns immediately.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := r.taskContext()
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				r.sink.Capture(name, fmt.Errorf("panic: %v\n%s", p, debug.Stack()))
			}
		}()
		if err := fn(ctx); err != nil {
			r.sink.Capture(name, err)
		}
	}()
}

// Wait blocks until every task scheduled so far has finished.
func (r *Runner) Wait() { r.wg.Wait() }

// Stop cancels running tasks and waits for them.
func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) taskContext() (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(r.ctx, r.timeout)
	}
	return context.WithCancel(r.ctx)
}
