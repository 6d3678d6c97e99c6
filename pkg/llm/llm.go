package llm

import (
	"context"
	"regexp"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prior turn of the conversation.
type Message struct {
	Role string
	Text string
}

// ReplyOptions shapes a single reply.
type ReplyOptions struct {
	FirstTurn   bool
	AvoidTopics []string
}

// ChatReplier produces the companion's free-form reply to a user turn.
type ChatReplier interface {
	Reply(ctx context.Context, input string, history []Message, opts ReplyOptions) (string, error)
}

const basePrompt = "You are a gentle, patient companion for elderly users. " +
	"You speak slowly, in short, simple sentences. " +
	"You avoid technical language. " +
	"You respond with warmth, reassurance, and clear, kind suggestions."

const firstTurnPrompt = " This is the first conversation today. Gently check if they have taken their pills, eaten, and had some water, then respond warmly."

var topicSanitizer = regexp.MustCompile(`(?i)[^a-z0-9\s'-]`)

// SystemPrompt builds the instruction for one reply. Only the six most recent
// avoid topics are named.
func SystemPrompt(opts ReplyOptions) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	var topics []string
	for _, t := range opts.AvoidTopics {
		t = strings.ToLower(strings.TrimSpace(topicSanitizer.ReplaceAllString(t, "")))
		if len(t) > 1 {
			topics = append(topics, t)
		}
	}
	if len(topics) > 6 {
		topics = topics[len(topics)-6:]
	}
	if len(topics) > 0 {
		b.WriteString(" Avoid bringing up these sensitive topics unless the user specifically asks: ")
		b.WriteString(strings.Join(topics, ", "))
		b.WriteString(". If they mention them, acknowledge gently and steer toward safer ground.")
	}
	if opts.FirstTurn {
		b.WriteString(firstTurnPrompt)
	}
	return b.String()
}
