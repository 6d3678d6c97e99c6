package companion

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxTopicsPerInput = 5
	maxTopicLen       = 80
)

var discomfortPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(.*?)\b(?:makes|make)s?\s+me\s+(?:uneasy|uncomfortable|nervous|anxious|upset|sad|scared)\b`),
	regexp.MustCompile(`(?i)\b(?:please\s+)?(?:don't|do not)\s+(?:talk|speak|go)\s+about\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)\b(?:don't|do not)\s+mention\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)\bi\s+don't\s+like\s+talking\s+about\s+([^.!?]+)`),
	regexp.MustCompile(`(?i)\b(?:avoid|stop)\s+talking\s+about\s+([^.!?]+)`),
}

var (
	trailingPreposition = regexp.MustCompile(`(?i)(?:about|on|of)\s+$`)
	topicDisallowed     = regexp.MustCompile(`(?i)[^a-z0-9\s'-]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// ExtractDiscomfortTopics finds subjects the speaker asked not to discuss,
// e.g. "hospitals make me nervous" or "don't mention the divorce".
func ExtractDiscomfortTopics(text string) []string {
	if text == "" {
		return []string{}
	}
	var topics []string
	seen := map[string]bool{}
	for _, re := range discomfortPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			t := normalizeTopic(m[1])
			if len(t) <= 2 || seen[t] {
				continue
			}
			seen[t] = true
			topics = append(topics, t)
		}
	}
	if len(topics) > maxTopicsPerInput {
		topics = topics[:maxTopicsPerInput]
	}
	if topics == nil {
		return []string{}
	}
	return topics
}

func normalizeTopic(raw string) string {
	s := trailingPreposition.ReplaceAllString(raw, "")
	s = topicDisallowed.ReplaceAllString(s, "")
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceRun.ReplaceAllString(s, " ")
	if utf8.RuneCountInString(s) > maxTopicLen {
		s = strings.TrimSpace(string([]rune(s)[:maxTopicLen]))
	}
	return s
}
