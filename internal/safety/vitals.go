package safety

// Heart-rate thresholds in beats per minute. Fixed policy, not per-user.
const (
	HighHeartRate = 120
	LowHeartRate  = 50
)

const (
	TagFallDetected      = "fall_detected"
	TagElevatedHeartRate = "elevated_heart_rate"
	TagLowHeartRate      = "low_heart_rate"
)

const (
	fallMessage   = "I detected a fall... I'm getting help right now. Can you hear me? Help is coming."
	vitalsMessage = "I'm noticing some unusual vitals... let's take a moment to rest. I'm letting your care circle know, just to be safe."
)

// ClassifyVitals inspects one sample. A fall always wins and no other field
// is looked at; otherwise each heart-rate threshold is checked on its own.
func ClassifyVitals(v VitalsSample) SafetyAlert {
	if v.Fell() {
		return newAlert(LevelEmergency, []string{TagFallDetected}, fallMessage,
			[]string{ActionEmergencyProtocol, ActionAlertCaregiver, ActionLocationShare, ActionCheckResponsive}, true)
	}

	var flags []string
	if v.HeartRate != nil {
		hr := *v.HeartRate
		if hr > HighHeartRate {
			flags = append(flags, TagElevatedHeartRate)
		}
		if hr < LowHeartRate {
			flags = append(flags, TagLowHeartRate)
		}
	}
	if len(flags) > 0 {
		return newAlert(LevelUrgent, flags, vitalsMessage,
			[]string{ActionAlertCaregiver, ActionSuggestRest, ActionMonitorVitals}, true)
	}
	return NormalAlert()
}
