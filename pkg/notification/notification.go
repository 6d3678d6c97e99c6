package notification

import "context"

// Report is a detailed incident report addressed to the care circle.
type Report struct {
	SubjectID string `json:"userId"`
	Recipient string `json:"email"`
	Subject   string `json:"subject"`
	Body      string `json:"report"`
	Timestamp string `json:"timestamp"`
}

// Notifier delivers caregiver-facing events over one channel.
type Notifier interface {
	SendEvent(ctx context.Context, event string, payload map[string]any) error
	SendReport(ctx context.Context, event string, report Report) error
}

// subjectOf extracts the subject id carried in an event payload.
func subjectOf(payload map[string]any) string {
	s, _ := payload["userId"].(string)
	return s
}
