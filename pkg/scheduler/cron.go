package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Cron struct {
	c    *cron.Cron
	loc  *time.Location
	sink ErrorSink
}

// NewCron builds a cron whose job failures go to sink.
func NewCron(loc *time.Location, lg *zap.Logger, sink ErrorSink) *Cron {
	if loc == nil {
		loc = time.Local
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	if sink == nil {
		sink = ZapSink(lg)
	}
	cl := cronLogger{lg: lg.Named("cron")}
	c := cron.New(cron.WithLocation(loc), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl)))
	return &Cron{c: c, loc: loc, sink: sink}
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { ctx := cr.c.Stop(); <-ctx.Done() }

// Add registers a named job under a standard five-field expression.
func (cr *Cron) Add(expr, name string, fn func(ctx context.Context) error) (cron.EntryID, error) {
	return cr.c.AddFunc(expr, func() {
		if err := fn(context.Background()); err != nil {
			cr.sink.Capture(name, err)
		}
	})
}

func (cr *Cron) Remove(id cron.EntryID) { cr.c.Remove(id) }

func (cr *Cron) Entries() []cron.Entry { return cr.c.Entries() }

// cronLogger 适配 cron.Logger 到 zap
type cronLogger struct{ lg *zap.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.lg.Debug(msg, zap.Any("kv", kv))
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.lg.Error(msg, zap.Error(err), zap.Any("kv", kv))
}
