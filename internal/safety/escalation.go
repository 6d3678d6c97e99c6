package safety

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CareCompanion/internal/models"
	"CareCompanion/pkg/scheduler"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event tags sent to the Notifier.
const (
	EventSafetyConcern   = "safety_concern"
	EventEmergencyAlert  = "emergency_alert"
	EventEmergencyReport = "emergency_report"
)

// TimeLayout is ISO-8601 UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

const defaultTaskTimeout = 30 * time.Second

// Notifier delivers caregiver-facing events. A non-nil error means the event
// is not believed delivered; retry policy belongs to the implementation.
type Notifier interface {
	SendEvent(ctx context.Context, event string, payload map[string]any) error
	SendReport(ctx context.Context, event string, report ReportPayload) error
}

// Store is best-effort persistence.
type Store interface {
	Append(ctx context.Context, table string, record any) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}

// TaskRunner runs detached work and reports its failures on its own.
type TaskRunner interface {
	Go(name string, fn func(ctx context.Context) error)
}

// Recorder observes escalation outcomes, typically for metrics.
type Recorder interface {
	ObserveEscalation(level string, notified bool)
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// UUIDGenerator yields alert_<uuid> ids without touching the network.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return "alert_" + uuid.NewString() }

// Incident is one alert together with what the caller knows about it.
type Incident struct {
	SubjectID string
	Alert     SafetyAlert
	Vitals    *VitalsSample
	Context   string
	Source    string
}

// EscalationOutcome is what the caller learns from Escalate.
type EscalationOutcome struct {
	Notified    bool   `json:"notified"`
	AlertID     string `json:"alertId"`
	EmailQueued bool   `json:"emailQueued"`
}

type Escalator struct {
	notifier  Notifier
	store     Store
	clock     Clock
	ids       IDGenerator
	runner    TaskRunner
	recorder  Recorder
	lg        *zap.Logger
	careEmail string
}

type Option func(*Escalator)

func WithStore(s Store) Option             { return func(e *Escalator) { e.store = s } }
func WithClock(c Clock) Option             { return func(e *Escalator) { e.clock = c } }
func WithIDGenerator(g IDGenerator) Option { return func(e *Escalator) { e.ids = g } }
func WithRunner(r TaskRunner) Option       { return func(e *Escalator) { e.runner = r } }
func WithRecorder(r Recorder) Option       { return func(e *Escalator) { e.recorder = r } }
func WithLogger(lg *zap.Logger) Option     { return func(e *Escalator) { e.lg = lg } }

// WithCareCircleEmail sets the recipient of emergency reports.
func WithCareCircleEmail(addr string) Option { return func(e *Escalator) { e.careEmail = addr } }

func NewEscalator(n Notifier, opts ...Option) *Escalator {
	e := &Escalator{
		notifier: n,
		clock:    SystemClock{},
		ids:      UUIDGenerator{},
		lg:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		e.runner = scheduler.New(scheduler.ZapSink(e.lg), defaultTaskTimeout)
	}
	return e
}

// Escalate decides which notifications an alert needs and attempts them.
// Collaborator failures are logged and folded into the outcome; the alert id
// is generated locally before any external call. A structurally invalid
// alert is a programming error and panics.
func (e *Escalator) Escalate(ctx context.Context, inc Incident) EscalationOutcome {
	if err := inc.Alert.Validate(); err != nil {
		panic(fmt.Sprintf("escalate %s: %v", inc.SubjectID, err))
	}
	out := EscalationOutcome{AlertID: e.ids.NewID()}
	alert := inc.Alert
	if alert.IsNormal() {
		return out
	}

	lg := e.lg.With(zap.String("alert_id", out.AlertID), zap.String("user_id", inc.SubjectID),
		zap.Stringer("level", alert.Level))
	ts := e.clock.Now().UTC().Format(TimeLayout)

	if alert.Level == LevelConcern {
		out.Notified = e.send(ctx, lg, EventSafetyConcern, e.concernPayload(inc, ts))
	} else {
		lg.Warn("safety escalation",
			zap.Strings("detected", alert.Detected),
			zap.Strings("actions", alert.Actions))
		out.Notified = e.send(ctx, lg, EventEmergencyAlert, e.alertPayload(inc, ts))
	}

	// the report is scheduled only after the primary attempt has returned
	if alert.Level == LevelEmergency {
		report := ReportPayload{
			SubjectID: inc.SubjectID,
			Recipient: e.careEmail,
			Subject:   ReportSubject(inc.SubjectID),
			Body:      BuildReport(inc.SubjectID, alert, inc.Vitals, inc.Context),
			Timestamp: ts,
		}
		e.runner.Go(EventEmergencyReport+":"+out.AlertID, func(ctx context.Context) error {
			if e.notifier == nil {
				return fmt.Errorf("no notifier for %s", EventEmergencyReport)
			}
			return e.notifier.SendReport(ctx, EventEmergencyReport, report)
		})
		out.EmailQueued = true
	}

	if e.store != nil {
		record := e.eventRecord(inc, out)
		e.runner.Go(models.TableSafetyEvents+":"+out.AlertID, func(ctx context.Context) error {
			return e.store.Append(ctx, models.TableSafetyEvents, record)
		})
	}
	if e.recorder != nil {
		e.recorder.ObserveEscalation(alert.Level.String(), out.Notified)
	}
	return out
}

func (e *Escalator) send(ctx context.Context, lg *zap.Logger, event string, payload map[string]any) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			lg.Error("notifier panicked", zap.String("event", event), zap.Any("panic", p))
			ok = false
		}
	}()
	if e.notifier == nil {
		lg.Warn("no notifier configured", zap.String("event", event))
		return false
	}
	if err := e.notifier.SendEvent(ctx, event, payload); err != nil {
		lg.Warn("notification failed", zap.String("event", event), zap.Error(err))
		return false
	}
	return true
}

func (e *Escalator) concernPayload(inc Incident, ts string) map[string]any {
	return map[string]any{
		"userId":         inc.SubjectID,
		"detected":       inc.Alert.Detected,
		"level":          inc.Alert.Level,
		"caregiverAlert": inc.Alert.CaregiverAlert,
		"actions":        inc.Alert.Actions,
		"timestamp":      ts,
		"source":         sourceOrDefault(inc.Source),
	}
}

func (e *Escalator) alertPayload(inc Incident, ts string) map[string]any {
	p := map[string]any{
		"userId":    inc.SubjectID,
		"level":     inc.Alert.Level,
		"detected":  inc.Alert.Detected,
		"timestamp": ts,
	}
	if inc.Vitals != nil {
		p["vitals"] = inc.Vitals
		if inc.Vitals.Location != nil {
			p["location"] = inc.Vitals.Location
		}
	}
	if inc.Context != "" {
		p["context"] = inc.Context
	}
	return p
}

func (e *Escalator) eventRecord(inc Incident, out EscalationOutcome) *models.SafetyEvent {
	rec := &models.SafetyEvent{
		AlertID:     out.AlertID,
		UserID:      inc.SubjectID,
		Level:       inc.Alert.Level.String(),
		Source:      sourceOrDefault(inc.Source),
		Detected:    mustJSON(inc.Alert.Detected),
		Actions:     mustJSON(inc.Alert.Actions),
		Context:     inc.Context,
		Notified:    out.Notified,
		EmailQueued: out.EmailQueued,
		CreatedAt:   e.clock.Now().UTC(),
	}
	if inc.Vitals != nil {
		rec.Vitals = mustJSON(inc.Vitals)
	}
	return rec
}

func sourceOrDefault(s string) string {
	if s == "" {
		return "text"
	}
	return s
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
