package companion

import (
	"regexp"
	"strings"
)

const (
	defaultMemoryTitle = "A Special Memory"
	defaultMemoryEra   = "Recent years"
	memoryTitleRunes   = 50
	storySentences     = 3
)

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// StoryMemory is the structured form of a shared story.
type StoryMemory struct {
	Title     string   `json:"title"`
	Era       string   `json:"era"`
	Story     string   `json:"story"`
	StoryFull string   `json:"storyFull"`
	Tags      []string `json:"tags"`
}

// SummarizeStory keeps the first three sentences of input and titles it with
// its opening words.
func SummarizeStory(input string) StoryMemory {
	full := strings.TrimSpace(input)

	var sentences []string
	for _, s := range sentenceEnd.Split(full, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
		if len(sentences) == storySentences {
			break
		}
	}
	story := strings.Join(sentences, ". ")
	if story != "" {
		story += "."
	} else {
		story = firstRunes(full, 200)
	}

	title := strings.TrimSpace(firstRunes(full, memoryTitleRunes))
	if title == "" {
		title = defaultMemoryTitle
	}
	return StoryMemory{
		Title:     title,
		Era:       defaultMemoryEra,
		Story:     story,
		StoryFull: full,
		Tags:      []string{"personal"},
	}
}

// BuddyNote summarizes a message from a friend.
type BuddyNote struct {
	Summary    string `json:"summary"`
	Tone       string `json:"tone"`
	Suggestion string `json:"suggestion"`
}

func SummarizeBuddyMessage(from string) BuddyNote {
	if from = strings.TrimSpace(from); from == "" {
		from = "someone"
	}
	return BuddyNote{
		Summary:    "Your friend " + from + " sent a warm hello… they're thinking of you today.",
		Tone:       "warm",
		Suggestion: "Maybe send a little message back when you're ready?",
	}
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
