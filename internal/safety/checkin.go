package safety

// 每日安全问候，按时段
var checkInQuestions = map[string][]string{
	"morning": {
		"Good morning... how did you sleep?",
		"Did you take your morning medication?",
		"Have you had some water yet today?",
	},
	"afternoon": {
		"How are you feeling this afternoon?",
		"Have you had lunch and stayed hydrated?",
		"Did you get some movement or fresh air today?",
	},
	"evening": {
		"How was your day today?",
		"Did you take your evening medication?",
		"Are you feeling safe and comfortable for the night?",
	},
}

// CheckInQuestions returns the safety questions for morning, afternoon or
// evening. Unknown values fall back to morning.
func CheckInQuestions(timeOfDay string) []string {
	qs, ok := checkInQuestions[timeOfDay]
	if !ok {
		qs = checkInQuestions["morning"]
	}
	out := make([]string, len(qs))
	copy(out, qs)
	return out
}
