package companion

// DayPlan is the gentle plan returned by a daily check-in.
type DayPlan struct {
	Summary  string   `json:"summary"`
	NextStep string   `json:"next_step"`
	Mood     Mood     `json:"mood"`
	Tags     []string `json:"tags"`
}

// PlanFor builds the scripted plan for a check-in input.
func PlanFor(input string) (DayPlan, Emotion) {
	emotion := EmotionCalm
	if input != "" {
		emotion = DetectEmotion(input)
	}
	return DayPlan{
		Summary:  "Let's take the day slowly… a little movement, some rest, and maybe a chat.",
		NextStep: "How about a short walk after breakfast?",
		Mood:     MoodFor(emotion),
		Tags:     []string{"routine", "mobility"},
	}, emotion
}

var wellnessPraise = map[string]string{
	"water":      "Good job staying hydrated! You're doing great.",
	"medication": "Thank you for taking your medication. Well done.",
	"activity":   "Wonderful! Movement is so good for you.",
}

// WellnessPraise is the spoken acknowledgement for a logged activity; empty
// for unknown types.
func WellnessPraise(kind string) string {
	return wellnessPraise[kind]
}
