package safety

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeVitals(t *testing.T) {
	assert.Equal(t, "No vitals data provided.", SummarizeVitals(nil))
	assert.Equal(t, "Timestamp: not recorded", SummarizeVitals(&VitalsSample{}))

	v := &VitalsSample{
		HeartRate:    f64(135),
		FallDetected: yes(),
		Location:     &Location{Lat: 37.774929, Lng: -122.419416},
		Timestamp:    "2024-05-01T10:00:00Z",
	}
	assert.Equal(t,
		"Heart rate: 135 bpm · Fall sensor triggered · Location: (37.7749, -122.4194) · Timestamp: 2024-05-01T10:00:00Z",
		SummarizeVitals(v))

	assert.Equal(t, "Heart rate: 72.5 bpm · Timestamp: not recorded",
		SummarizeVitals(&VitalsSample{HeartRate: f64(72.5), FallDetected: no()}))
}

func TestContextSnippet(t *testing.T) {
	assert.Equal(t, "No transcript available.", ContextSnippet(""))

	short := strings.Repeat("a", 280)
	assert.Equal(t, short, ContextSnippet(short))

	long := strings.Repeat("é", 300)
	got := ContextSnippet(long)
	assert.Equal(t, strings.Repeat("é", 277)+"…", got)
}

func TestBuildReport(t *testing.T) {
	alert := AnalyzeText("I fell down")
	body := BuildReport("u-1", alert, nil, "I fell down in the kitchen")

	lines := strings.Split(body, "\n")
	assert.Equal(t, "Emergency alert for u-1", lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "Level: EMERGENCY", lines[2])
	assert.Equal(t, "Reasons: i fell, i fell down", lines[3])
	assert.Equal(t, "Recommended actions: alert_caregiver, emergency_protocol, location_share", lines[4])
	assert.Equal(t, "Recent words:", lines[6])
	assert.Equal(t, "I fell down in the kitchen", lines[7])
	assert.Equal(t, "Vitals summary:", lines[9])
	assert.Equal(t, "No vitals data provided.", lines[10])
	assert.Equal(t, reportFooter, lines[len(lines)-1])

	empty := BuildReport("u-2", SafetyAlert{Level: LevelEmergency}, nil, "")
	assert.Contains(t, empty, "Reasons: unspecified concern")
	assert.Contains(t, empty, "Recommended actions: standard emergency protocol")
	assert.Contains(t, empty, "No transcript available.")
}
