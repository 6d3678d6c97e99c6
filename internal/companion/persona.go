package companion

import (
	"math/rand/v2"
	"regexp"
	"strings"
)

type Emotion string

const (
	EmotionStressed Emotion = "stressed"
	EmotionConfused Emotion = "confused"
	EmotionLonely   Emotion = "lonely"
	EmotionCalm     Emotion = "calm"
)

type Mood string

const (
	MoodLow  Mood = "low"
	MoodOK   Mood = "ok"
	MoodGood Mood = "good"
)

var reassurances = []string{
	"It's okay… take your time.",
	"I'm here with you.",
	"You're doing fine.",
	"Let's go slowly.",
	"No need to rush.",
}

// 复杂词 -> 简单词，按顺序替换
var simpleWords = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`(?i)\butilize\b`), "use"},
	{regexp.MustCompile(`(?i)\bimplement\b`), "do"},
	{regexp.MustCompile(`(?i)\bconfigure\b`), "set up"},
	{regexp.MustCompile(`(?i)\boptimize\b`), "make better"},
	{regexp.MustCompile(`(?i)\binitialize\b`), "start"},
}

var (
	sentenceGap  = regexp.MustCompile(`([.!?])\s+`)
	commaNoSpace = regexp.MustCompile(`,(\S)`)
)

var empatheticResponses = map[Emotion][]string{
	EmotionStressed: {
		"It's okay to feel this way… let's breathe together and go slowly.",
		"This sounds heavy… we can take things one small step at a time.",
		"Thank you for telling me… we will go gently, there is no rush.",
	},
	EmotionConfused: {
		"That's alright… let's look at this step by step, nice and easy.",
		"It can be confusing sometimes… we will go through it slowly together.",
		"You do not have to understand everything at once… we can take our time.",
	},
	EmotionLonely: {
		"I'm here with you… you're not alone. Let's talk for a while.",
		"Feeling lonely can be very hard… I am right here listening to you.",
		"Even if the room feels empty, I am here with you now.",
	},
	EmotionCalm: {
		"I'm glad you're here… let's enjoy this moment together.",
		"It sounds like a gentle moment… we can simply be here together.",
		"Thank you for sharing this time with me… let's keep things soft and easy.",
	},
}

var checkInMessages = map[Mood]string{
	MoodLow:  "I'm here with you… let's take things one step at a time today.",
	MoodOK:   "You're doing just fine… let's see what today brings.",
	MoodGood: "It's wonderful to see you… let's make today a good one.",
}

var memoryPrompts = []string{
	"I'd love to hear about that… tell me more when you're ready.",
	"That sounds like a special memory… let's save it together.",
	"What a wonderful story… I'm listening.",
}

var socialEncouragements = []string{
	"It's nice to connect with others… when you're ready.",
	"Sharing a moment can brighten the day… yours and theirs.",
	"A simple hello can mean so much… take your time.",
}

var greetings = map[string]string{
	"morning":   "Good morning… how are you feeling today?",
	"afternoon": "Good afternoon… I hope you're doing well.",
	"evening":   "Good evening… let's take a moment together.",
}

// TTSOptions tunes FormatForTTS. The zero value simplifies words and adds
// pauses without a reassurance prefix.
type TTSOptions struct {
	KeepComplexWords   bool
	NoPauses           bool
	IncludeReassurance bool
}

// Persona produces the companion's scripted lines. pick chooses among
// variants and is swapped for a fixed function in tests.
type Persona struct {
	pick func(n int) int
}

func NewPersona() *Persona { return &Persona{pick: rand.IntN} }

// NewPersonaWithPicker uses pick to choose between scripted variants.
func NewPersonaWithPicker(pick func(n int) int) *Persona { return &Persona{pick: pick} }

// FormatForTTS shapes text for speech: plain words, even pauses.
func (p *Persona) FormatForTTS(text string, opts TTSOptions) string {
	out := text
	if !opts.KeepComplexWords {
		out = SimplifyLanguage(out)
	}
	if !opts.NoPauses {
		out = AddPauses(out)
	}
	if opts.IncludeReassurance {
		out = reassurances[p.pick(len(reassurances))] + " " + out
	}
	return out
}

// SimplifyLanguage swaps complex words for plain ones.
func SimplifyLanguage(text string) string {
	for _, w := range simpleWords {
		text = w.re.ReplaceAllString(text, w.with)
	}
	return text
}

// AddPauses normalizes ellipses and punctuation spacing.
func AddPauses(text string) string {
	text = strings.ReplaceAll(text, "...", "…")
	text = sentenceGap.ReplaceAllString(text, "$1 ")
	return commaNoSpace.ReplaceAllString(text, ", $1")
}

// DetectEmotion maps input to an emotion by keyword.
func DetectEmotion(input string) Emotion {
	s := strings.ToLower(input)
	switch {
	case containsAny(s, "stress", "worried", "anxious"):
		return EmotionStressed
	case containsAny(s, "confused", "don't understand", "lost"):
		return EmotionConfused
	case containsAny(s, "lonely", "alone", "miss"):
		return EmotionLonely
	}
	return EmotionCalm
}

// MoodFor maps a detected emotion to the check-in mood plan.
func MoodFor(e Emotion) Mood {
	switch e {
	case EmotionStressed, EmotionLonely:
		return MoodLow
	case EmotionConfused:
		return MoodOK
	}
	return MoodGood
}

// EmpatheticResponse returns one of the scripted replies for an emotion.
func (p *Persona) EmpatheticResponse(e Emotion) string {
	opts, ok := empatheticResponses[e]
	if !ok {
		opts = empatheticResponses[EmotionCalm]
	}
	return p.FormatForTTS(opts[p.pick(len(opts))], TTSOptions{})
}

func (p *Persona) CheckInMessage(m Mood) string {
	msg, ok := checkInMessages[m]
	if !ok {
		msg = checkInMessages[MoodOK]
	}
	return p.FormatForTTS(msg, TTSOptions{})
}

// MemoryPrompt encourages the subject after a story is saved.
func (p *Persona) MemoryPrompt() string {
	return p.FormatForTTS(memoryPrompts[p.pick(len(memoryPrompts))], TTSOptions{})
}

func (p *Persona) SocialEncouragement() string {
	return p.FormatForTTS(socialEncouragements[p.pick(len(socialEncouragements))], TTSOptions{})
}

// Greeting for morning, afternoon or evening; morning otherwise.
func Greeting(timeOfDay string) string {
	if g, ok := greetings[timeOfDay]; ok {
		return g
	}
	return greetings["morning"]
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
