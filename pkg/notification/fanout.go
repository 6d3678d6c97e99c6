package notification

import (
	"context"
	stderrors "errors"
	"fmt"

	"CareCompanion/pkg/errors"

	"go.uber.org/zap"
)

// Channel is a named Notifier.
type Channel struct {
	Name     string
	Notifier Notifier
}

// Fanout delivers each event to every channel in order. It succeeds when at
// least one channel succeeds; otherwise it returns every channel's error.
type Fanout struct {
	channels []Channel
	logger   *zap.Logger
}

func NewFanout(logger *zap.Logger, channels ...Channel) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{channels: channels, logger: logger}
}

// Channels returns the configured channel names.
func (f *Fanout) Channels() []string {
	names := make([]string, 0, len(f.channels))
	for _, ch := range f.channels {
		names = append(names, ch.Name)
	}
	return names
}

func (f *Fanout) SendEvent(ctx context.Context, event string, payload map[string]any) error {
	return f.each(event, func(n Notifier) error { return n.SendEvent(ctx, event, payload) })
}

func (f *Fanout) SendReport(ctx context.Context, event string, report Report) error {
	return f.each(event, func(n Notifier) error { return n.SendReport(ctx, event, report) })
}

func (f *Fanout) each(event string, send func(Notifier) error) error {
	if len(f.channels) == 0 {
		return errors.NotConfigured("notification channels")
	}
	var errs []error
	delivered := 0
	for _, ch := range f.channels {
		if err := send(ch.Notifier); err != nil {
			f.logger.Debug("notification channel failed",
				zap.String("channel", ch.Name), zap.String("event", event), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name, err))
			continue
		}
		delivered++
	}
	if delivered > 0 {
		return nil
	}
	return stderrors.Join(errs...)
}
