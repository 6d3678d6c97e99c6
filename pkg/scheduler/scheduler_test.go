package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	failed map[string]error
}

func (s *recordingSink) Capture(task string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = map[string]error{}
	}
	s.failed[task] = err
}

func TestRunnerCapturesErrorsAndPanics(t *testing.T) {
	sink := &recordingSink{}
	r := New(sink, time.Second)

	r.Go("ok", func(ctx context.Context) error { return nil })
	r.Go("fails", func(ctx context.Context) error { return errors.New("boom") })
	r.Go("panics", func(ctx context.Context) error { panic("kaboom") })
	r.Wait()

	require.Len(t, sink.failed, 2)
	assert.EqualError(t, sink.failed["fails"], "boom")
	assert.Contains(t, sink.failed["panics"].Error(), "kaboom")
}

func TestRunnerTaskTimeout(t *testing.T) {
	sink := &recordingSink{}
	r := New(sink, 20*time.Millisecond)

	r.Go("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	r.Wait()

	assert.ErrorIs(t, sink.failed["slow"], context.DeadlineExceeded)
}

func TestRunnerStopCancels(t *testing.T) {
	sink := &recordingSink{}
	r := New(sink, 0)
	started := make(chan struct{})
	r.Go("blocked", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started
	r.Stop()

	assert.ErrorIs(t, sink.failed["blocked"], context.Canceled)
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	MultiSink(a, nil, b).Capture("x", errors.New("e"))
	assert.Len(t, a.failed, 1)
	assert.Len(t, b.failed, 1)
}

func TestCronAddAndEntries(t *testing.T) {
	sink := &recordingSink{}
	c := NewCron(time.UTC, nil, sink)
	id, err := c.Add("0 3 * * *", "backup", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = c.Add("not a cron", "bad", func(ctx context.Context) error { return nil })
	assert.Error(t, err)

	c.Remove(id)
	assert.Empty(t, c.Entries())
}
