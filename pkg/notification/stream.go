package notification

import (
	"context"
	stderrors "errors"

	"CareCompanion/pkg/errors"
)

// ErrNoListeners means no caregiver dashboard was open for the subject.
var ErrNoListeners = stderrors.New("no live caregiver streams")

// Publisher is a live caregiver hub (sse.Hub, websocket.Hub).
type Publisher interface {
	Publish(subject, event string, v any) (int, error)
}

// Stream pushes events to open caregiver dashboards.
type Stream struct {
	hub Publisher
}

func NewStream(hub Publisher) *Stream { return &Stream{hub: hub} }

func (s *Stream) SendEvent(ctx context.Context, event string, payload map[string]any) error {
	return s.publish(subjectOf(payload), event, payload)
}

func (s *Stream) SendReport(ctx context.Context, event string, report Report) error {
	return s.publish(report.SubjectID, event, report)
}

func (s *Stream) publish(subject, event string, v any) error {
	if subject == "" {
		return errors.WithCode(errors.CodeInvalidInput, "stream event without subject")
	}
	n, err := s.hub.Publish(subject, event, v)
	if err != nil {
		return errors.Wrap(err, "encode stream event")
	}
	if n == 0 {
		return ErrNoListeners
	}
	return nil
}
