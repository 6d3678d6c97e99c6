package companion

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cast"
)

type NudgeType string

const (
	NudgeMedication NudgeType = "medication"
	NudgeHydration  NudgeType = "hydration"
	NudgeActivity   NudgeType = "activity"
	NudgeRest       NudgeType = "rest"
	NudgeWeather    NudgeType = "weather"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var priorityRank = map[Priority]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}

// Nudge is one wellness reminder shown on screen and spoken aloud.
type Nudge struct {
	Type       NudgeType `json:"type"`
	Priority   Priority  `json:"priority"`
	Message    string    `json:"message"`
	TTSMessage string    `json:"ttsMessage"`
	Action     string    `json:"action,omitempty"`
}

type MedicationSchedule struct {
	Name     string
	Dosage   string
	Times    []string // "08:00"
	WithFood bool
}

type HydrationGoal struct {
	DailyGlasses   int
	CurrentGlasses int
}

// Weather in °F as reported by the subject's device.
type Weather struct {
	Temp      float64
	Condition string // sunny / rainy / cloudy ...
}

type NudgeInputs struct {
	TimeOfDay   string
	Mood        Mood
	Medications []MedicationSchedule
	Hydration   HydrationGoal
	Weather     *Weather // nil 时不给天气提示
	Stress      string   // 为空时不给放松提示
	Now         time.Time
}

// WellnessNudges collects the reminders due now, most urgent first. Nudges of
// equal priority keep their insertion order.
func WellnessNudges(in NudgeInputs) []Nudge {
	var out []Nudge
	hour := fmt.Sprintf("%02d:00", in.Now.Hour())
	for _, med := range in.Medications {
		if slices.Contains(med.Times, hour) {
			out = append(out, MedicationReminder(med))
		}
	}

	var temp float64
	if in.Weather != nil {
		temp = in.Weather.Temp
	}
	if n, ok := HydrationNudge(in.Hydration, temp); ok {
		out = append(out, n)
	}
	if in.Weather != nil {
		if n, ok := WeatherPrompt(*in.Weather); ok {
			out = append(out, n)
		}
	}
	out = append(out, ActivityGuidance(in.TimeOfDay, in.Mood))
	if in.Stress != "" {
		out = append(out, StressReduction(in.Stress))
	}

	slices.SortStableFunc(out, func(a, b Nudge) int {
		return priorityRank[a.Priority] - priorityRank[b.Priority]
	})
	return out
}

func MedicationReminder(med MedicationSchedule) Nudge {
	withFood := ""
	if med.WithFood {
		withFood = " Remember to take it with some food."
	}
	return Nudge{
		Type:       NudgeMedication,
		Priority:   PriorityHigh,
		Message:    fmt.Sprintf("Time for your %s (%s).%s", med.Name, med.Dosage, withFood),
		TTSMessage: fmt.Sprintf("Hi... it's time for your %s. %s.%s I'll wait while you take it... no rush.", med.Name, med.Dosage, withFood),
		Action:     "confirm_taken",
	}
}

func glasses(n int) string {
	if n == 1 {
		return "glass"
	}
	return "glasses"
}

// HydrationNudge is false once the daily goal is met.
func HydrationNudge(goal HydrationGoal, temp float64) (Nudge, bool) {
	remaining := goal.DailyGlasses - goal.CurrentGlasses
	if remaining <= 0 {
		return Nudge{}, false
	}
	warm := ""
	if temp > 75 {
		warm = " It is warm today, so staying hydrated is extra important."
	}

	n := Nudge{Type: NudgeHydration, Action: "log_water"}
	switch {
	case remaining >= 6:
		n.Priority = PriorityHigh
		n.Message = fmt.Sprintf("You've had %d %s of water today. Let's have another one.", goal.CurrentGlasses, glasses(goal.CurrentGlasses))
		n.TTSMessage = "How about a glass of water?" + warm + " Take your time... I'll wait."
	case remaining >= 3:
		n.Priority = PriorityMedium
		n.Message = fmt.Sprintf("%d more %s of water to reach your goal today.", remaining, glasses(remaining))
		n.TTSMessage = fmt.Sprintf("You're doing well... just %d more %s of water to go.%s", remaining, glasses(remaining), warm)
	default:
		n.Priority = PriorityLow
		n.Message = fmt.Sprintf("Almost there! Just %d more %s.", remaining, glasses(remaining))
		n.TTSMessage = fmt.Sprintf("You're almost at your water goal... just %d more to go. You're doing great!", remaining)
	}
	return n, true
}

// WeatherPrompt 高温/低温/下雨/晴好，其余天气不提示
func WeatherPrompt(w Weather) (Nudge, bool) {
	t := cast.ToString(w.Temp)
	switch {
	case w.Temp > 85:
		return Nudge{
			Type:       NudgeWeather,
			Priority:   PriorityHigh,
			Message:    "It's " + t + "°F outside. Stay indoors and drink plenty of water.",
			TTSMessage: "It's quite warm today... " + t + " degrees. Let's stay inside where it's cool... and make sure to drink extra water.",
		}, true
	case w.Temp < 35:
		return Nudge{
			Type:       NudgeWeather,
			Priority:   PriorityMedium,
			Message:    "It's " + t + "°F outside. Dress warmly if you go out.",
			TTSMessage: "It's cold today... " + t + " degrees. If you go outside, make sure to bundle up nice and warm.",
		}, true
	case w.Condition == "rainy":
		return Nudge{
			Type:       NudgeWeather,
			Priority:   PriorityLow,
			Message:    "It's raining today. Perfect day to stay cozy inside.",
			TTSMessage: "It's a rainy day... perfect for staying cozy inside. Maybe a good book or some music?",
		}, true
	case w.Temp >= 65 && w.Temp <= 75 && w.Condition == "sunny":
		return Nudge{
			Type:       NudgeWeather,
			Priority:   PriorityLow,
			Message:    "Beautiful day! " + t + "°F and sunny. Great for a short walk.",
			TTSMessage: "It's a beautiful day outside... " + t + " degrees and sunny. If you feel up to it, a short walk might feel nice.",
		}, true
	}
	return Nudge{}, false
}

type guidance struct{ message, tts, action string }

var activityGuidance = map[string]map[Mood]guidance{
	"morning": {
		MoodLow: {"Let's start gentle today. Maybe some stretches in your chair?",
			"Let's take it easy this morning... how about some gentle stretches? Just what feels comfortable.", "chair_stretches"},
		MoodOK: {"A short morning walk might feel good. Just around the block?",
			"How about a short walk this morning? Just around the block... fresh air can feel so nice.", "short_walk"},
		MoodGood: {"You're feeling good! How about a morning walk or some light exercise?",
			"You seem to be feeling well today... maybe a nice walk or some light exercise?", "morning_activity"},
	},
	"afternoon": {
		MoodLow: {"Rest is important. Maybe sit by a window and enjoy the view?",
			"It's okay to rest... how about sitting by a window? The light and view can be calming.", "rest_time"},
		MoodOK: {"A little movement can boost your energy. Short walk or gentle stretches?",
			"A bit of movement might help your energy... nothing too much, just what feels right.", "light_movement"},
		MoodGood: {"Great energy! Maybe some gardening or a hobby you enjoy?",
			"You have good energy today... how about spending time on something you love? Gardening, crafts, whatever brings you joy.", "hobby_time"},
	},
	"evening": {
		MoodLow: {"Wind down gently. Some calm music or a favorite show?",
			"Let's wind down peacefully... maybe some calm music or a show you like?", "calm_evening"},
		MoodOK: {"Evening is for relaxing. Light reading or gentle music?",
			"Time to relax... maybe some light reading or peaceful music before bed?", "relaxation"},
		MoodGood: {"Nice evening! Maybe a phone call with family or friends?",
			"It's a nice evening... would you like to call someone? Family or friends?", "social_connection"},
	},
}

// ActivityGuidance falls back to a morning / ok suggestion for unknown input.
func ActivityGuidance(timeOfDay string, mood Mood) Nudge {
	byMood, ok := activityGuidance[timeOfDay]
	if !ok {
		byMood = activityGuidance["morning"]
	}
	g, ok := byMood[mood]
	if !ok {
		g = byMood[MoodOK]
	}
	return Nudge{Type: NudgeActivity, Priority: PriorityMedium, Message: g.message, TTSMessage: g.tts, Action: g.action}
}

var stressTechniques = map[string]guidance{
	"high": {"Let's take some deep breaths together. In slowly... and out slowly...",
		"I can tell you might be feeling stressed... let's breathe together. Breathe in slowly... two, three, four... and out... two, three, four. You're doing great.", "breathing_exercise"},
	"medium": {"Feeling a bit tense? Try relaxing your shoulders and taking a few deep breaths.",
		"Let's relax those shoulders... drop them down... and take a few slow, deep breaths. That's it... you're doing well.", "shoulder_relaxation"},
	"low": {"You're doing well. Remember to pause and breathe when you need to.",
		"You're doing just fine... remember, you can always pause and take a breath whenever you need to.", "reminder"},
}

// StressReduction treats unknown levels as low.
func StressReduction(level string) Nudge {
	g, ok := stressTechniques[level]
	if !ok {
		level, g = "low", stressTechniques["low"]
	}
	p := PriorityMedium
	if level == "high" {
		p = PriorityHigh
	}
	return Nudge{Type: NudgeRest, Priority: p, Message: g.message, TTSMessage: g.tts, Action: g.action}
}
