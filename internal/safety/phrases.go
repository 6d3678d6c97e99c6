package safety

import "strings"

// Emergency trigger phrases, scanned in this order.
var emergencyPhrases = []string{
	// direct help requests
	"i need help",
	"help me",
	"call for help",
	"get help",
	// feeling unsafe
	"i don't feel safe",
	"i feel unsafe",
	"not safe",
	"scared",
	"afraid",
	// medical
	"i feel dizzy",
	"i feel weak",
	"i fell",
	"i fell down",
	"chest pain",
	"cant breathe",
	"can't breathe",
	"trouble breathing",
	"heart racing",
	// urgent situations
	"emergency",
	"911",
	"ambulance",
}

// Wellness concern phrases, checked only when no emergency phrase matched.
var concernPhrases = []string{
	"not feeling well",
	"feeling tired",
	"feeling confused",
	"forgot to take",
	"missed my medication",
	"feel lonely",
	"feel sad",
}

const (
	emergencyTextMessage = "I hear you need help... I'm contacting your care circle right now. Stay calm, help is on the way."
	concernTextMessage   = "I understand you're not feeling your best... let's talk about it. Would you like me to let someone know?"
)

// PhraseMatch is the raw result of a phrase scan.
type PhraseMatch struct {
	Level    Level
	Detected []string
}

// PhraseMatcher scans free text for emergency and concern phrases. Matching is
// a case-insensitive substring test with no word boundaries.
type PhraseMatcher struct {
	emergency []string
	concern   []string
}

// NewPhraseMatcher returns a matcher over the fixed phrase lists.
func NewPhraseMatcher() *PhraseMatcher {
	return &PhraseMatcher{emergency: emergencyPhrases, concern: concernPhrases}
}

// Match lowercases text and returns every matching emergency phrase, or, when
// there are none, every matching concern phrase.
func (m *PhraseMatcher) Match(text string) PhraseMatch {
	lower := strings.ToLower(text)
	if detected := scan(lower, m.emergency); len(detected) > 0 {
		return PhraseMatch{Level: LevelEmergency, Detected: detected}
	}
	if detected := scan(lower, m.concern); len(detected) > 0 {
		return PhraseMatch{Level: LevelConcern, Detected: detected}
	}
	return PhraseMatch{Level: LevelNormal, Detected: []string{}}
}

// Analyze turns a phrase scan into a SafetyAlert.
func (m *PhraseMatcher) Analyze(text string) SafetyAlert {
	match := m.Match(text)
	switch match.Level {
	case LevelEmergency:
		return newAlert(LevelEmergency, match.Detected, emergencyTextMessage,
			[]string{ActionAlertCaregiver, ActionEmergencyProtocol, ActionLocationShare}, true)
	case LevelConcern:
		return newAlert(LevelConcern, match.Detected, concernTextMessage,
			[]string{ActionOfferSupport, ActionSuggestContact}, false)
	}
	return NormalAlert()
}

func scan(lower string, phrases []string) []string {
	var detected []string
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			detected = append(detected, p)
		}
	}
	return detected
}

var defaultMatcher = NewPhraseMatcher()

// AnalyzeText classifies text with the fixed phrase lists.
func AnalyzeText(text string) SafetyAlert {
	return defaultMatcher.Analyze(text)
}
