package safety

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"CareCompanion/pkg/notification"
)

const (
	snippetLimit = 280
	snippetKeep  = 277

	reportFooter = "This message was generated automatically by your companion to keep the care circle informed."
)

// ReportPayload is the detailed incident report sent to the care circle.
type ReportPayload = notification.Report

// SummarizeVitals renders a sample as one line. Absent fields are left out,
// except the timestamp which reads "not recorded".
func SummarizeVitals(v *VitalsSample) string {
	if v == nil {
		return "No vitals data provided."
	}
	var parts []string
	if v.HeartRate != nil {
		parts = append(parts, "Heart rate: "+strconv.FormatFloat(*v.HeartRate, 'f', -1, 64)+" bpm")
	}
	if v.Fell() {
		parts = append(parts, "Fall sensor triggered")
	}
	if v.Location != nil {
		parts = append(parts, fmt.Sprintf("Location: (%.4f, %.4f)", v.Location.Lat, v.Location.Lng))
	}
	ts := v.Timestamp
	if ts == "" {
		ts = "not recorded"
	}
	parts = append(parts, "Timestamp: "+ts)
	return strings.Join(parts, " · ")
}

// ContextSnippet caps recent conversation text for the report.
func ContextSnippet(context string) string {
	if context == "" {
		return "No transcript available."
	}
	if utf8.RuneCountInString(context) <= snippetLimit {
		return context
	}
	runes := []rune(context)
	return string(runes[:snippetKeep]) + "…"
}

// ReportSubject is the subject line of an incident report.
func ReportSubject(subjectID string) string {
	return "Emergency alert for " + subjectID
}

// BuildReport renders the human-readable incident report.
func BuildReport(subjectID string, alert SafetyAlert, vitals *VitalsSample, context string) string {
	reasons := "unspecified concern"
	if len(alert.Detected) > 0 {
		reasons = strings.Join(alert.Detected, ", ")
	}
	actions := "standard emergency protocol"
	if len(alert.Actions) > 0 {
		actions = strings.Join(alert.Actions, ", ")
	}
	return strings.Join([]string{
		ReportSubject(subjectID),
		"",
		"Level: " + strings.ToUpper(alert.Level.String()),
		"Reasons: " + reasons,
		"Recommended actions: " + actions,
		"",
		"Recent words:",
		ContextSnippet(context),
		"",
		"Vitals summary:",
		SummarizeVitals(vitals),
		"",
		reportFooter,
	}, "\n")
}
