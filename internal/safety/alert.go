package safety

import (
	"fmt"
	"slices"
)

// Recommended action tags carried by a SafetyAlert.
const (
	ActionAlertCaregiver    = "alert_caregiver"
	ActionEmergencyProtocol = "emergency_protocol"
	ActionLocationShare     = "location_share"
	ActionCheckResponsive   = "check_responsive"
	ActionOfferSupport      = "offer_support"
	ActionSuggestContact    = "suggest_contact"
	ActionSuggestRest       = "suggest_rest"
	ActionMonitorVitals     = "monitor_vitals"
)

// SafetyAlert is the classification result for one request or vitals sample.
// Values are built by the constructors in this package and never mutated;
// slices returned by accessors are copies.
type SafetyAlert struct {
	Level          Level    `json:"level"`
	Detected       []string `json:"detected"`
	Message        string   `json:"message"`
	Actions        []string `json:"actions"`
	CaregiverAlert bool     `json:"caregiverAlert"`
}

// NormalAlert is the null alert.
func NormalAlert() SafetyAlert {
	return SafetyAlert{Level: LevelNormal, Detected: []string{}, Actions: []string{}}
}

func newAlert(level Level, detected []string, message string, actions []string, caregiver bool) SafetyAlert {
	return SafetyAlert{
		Level:          level,
		Detected:       slices.Clone(detected),
		Message:        message,
		Actions:        slices.Clone(actions),
		CaregiverAlert: caregiver,
	}
}

// ManualTrigger builds the alert for an explicit help request (panic button,
// watch SOS). kind is recorded as the detected trigger.
func ManualTrigger(kind string) SafetyAlert {
	if kind == "" {
		kind = "manual_trigger"
	}
	return newAlert(LevelEmergency, []string{kind}, "Help is on the way... stay calm.",
		[]string{ActionEmergencyProtocol, ActionAlertCaregiver, ActionLocationShare}, true)
}

// IsNormal reports whether the alert needs no escalation.
func (a SafetyAlert) IsNormal() bool { return a.Level == LevelNormal }

// HasAction reports whether tag is among the recommended actions.
func (a SafetyAlert) HasAction(tag string) bool { return slices.Contains(a.Actions, tag) }

// Validate checks the structural invariants of an alert.
func (a SafetyAlert) Validate() error {
	if !a.Level.Valid() {
		return fmt.Errorf("safety alert: invalid level %d", int(a.Level))
	}
	if a.Level == LevelNormal {
		if len(a.Detected) > 0 || len(a.Actions) > 0 {
			return fmt.Errorf("safety alert: normal level with detected=%v actions=%v", a.Detected, a.Actions)
		}
		if a.CaregiverAlert {
			return fmt.Errorf("safety alert: normal level with caregiver alert")
		}
		return nil
	}
	if len(a.Detected) == 0 {
		return fmt.Errorf("safety alert: %s level without detected triggers", a.Level)
	}
	if a.Level.RequiresCaregiver() != a.CaregiverAlert {
		return fmt.Errorf("safety alert: %s level with caregiverAlert=%t", a.Level, a.CaregiverAlert)
	}
	return nil
}

// Location is a latitude/longitude pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// VitalsSample is one telemetry reading from a wearable or sensor. Every field
// is optional.
type VitalsSample struct {
	HeartRate    *float64  `json:"heartRate,omitempty"`
	FallDetected *bool     `json:"fallDetected,omitempty"`
	Location     *Location `json:"location,omitempty"`
	Timestamp    string    `json:"timestamp,omitempty"`
}

// Fell reports whether the fall sensor fired.
func (v VitalsSample) Fell() bool {
	return v.FallDetected != nil && *v.FallDetected
}
