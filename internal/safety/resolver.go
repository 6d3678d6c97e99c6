package safety

import "slices"

// Resolve merges a text-derived and a vitals-derived alert for the same
// request. The more severe alert wins outright. On equal severity the detected
// triggers and actions are unioned, text entries first, and the text alert's
// message is kept.
func Resolve(text, vitals SafetyAlert) SafetyAlert {
	switch {
	case text.Level > vitals.Level:
		return text.clone()
	case vitals.Level > text.Level:
		return vitals.clone()
	case text.Level == LevelNormal:
		return NormalAlert()
	}

	msg := text.Message
	if msg == "" {
		msg = vitals.Message
	}
	return SafetyAlert{
		Level:          text.Level,
		Detected:       union(text.Detected, vitals.Detected),
		Message:        msg,
		Actions:        union(text.Actions, vitals.Actions),
		CaregiverAlert: text.CaregiverAlert || vitals.CaregiverAlert,
	}
}

// ResolveInputs classifies whichever inputs are present and merges them.
func ResolveInputs(text string, vitals *VitalsSample) SafetyAlert {
	textAlert := NormalAlert()
	if text != "" {
		textAlert = AnalyzeText(text)
	}
	if vitals == nil {
		return textAlert
	}
	return Resolve(textAlert, ClassifyVitals(*vitals))
}

func (a SafetyAlert) clone() SafetyAlert {
	a.Detected = slices.Clone(a.Detected)
	a.Actions = slices.Clone(a.Actions)
	if a.Detected == nil {
		a.Detected = []string{}
	}
	if a.Actions == nil {
		a.Actions = []string{}
	}
	return a
}

func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
