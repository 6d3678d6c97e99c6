package companion

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"CareCompanion/internal/models"
)

const (
	WeeklyLookback      = 7 * 24 * time.Hour
	DefaultReportName   = "Companion friend"
	weeklyShareRunes    = 160
	weeklyHighlightSize = 3
)

type WeeklyInput struct {
	UserName string
	Chats    []models.ChatMessage
	Memories []models.Memory
	Now      time.Time
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

// BuildWeeklyReport summarizes the last seven days of chats and saved
// memories for the care circle.
func BuildWeeklyReport(in WeeklyInput) string {
	name := strings.TrimSpace(in.UserName)
	if name == "" {
		name = DefaultReportName
	}
	cutoff := in.Now.Add(-WeeklyLookback)

	var shared []string
	replies := 0
	for _, m := range in.Chats {
		if m.CreatedAt.Before(cutoff) {
			continue
		}
		if m.Role == models.RoleUser {
			shared = append(shared, m.Content)
		} else {
			replies++
		}
	}

	var memories []models.Memory
	for _, m := range in.Memories {
		if !m.CreatedAt.Before(cutoff) {
			memories = append(memories, m)
		}
	}
	slices.SortStableFunc(memories, func(a, b models.Memory) int { return a.CreatedAt.Compare(b.CreatedAt) })

	shares := "• No new notes shared this week."
	if len(shared) > 0 {
		var lines []string
		for _, s := range shared[max(0, len(shared)-weeklyHighlightSize):] {
			lines = append(lines, "• \"" + firstRunes(s, weeklyShareRunes) + "\"")
		}
		shares = strings.Join(lines, "\n")
	}

	highlights := "• No new memories were saved this week."
	memoryLine := "No new memories were recorded."
	if len(memories) > 0 {
		var lines []string
		for _, m := range memories[max(0, len(memories)-weeklyHighlightSize):] {
			lines = append(lines, fmt.Sprintf("• %s (%s)", m.Title, m.Era))
		}
		highlights = strings.Join(lines, "\n")
		memoryLine = fmt.Sprintf("%s added %s.", name, plural(len(memories), "new memory", "new memories"))
	}

	summary := strings.Join([]string{
		fmt.Sprintf("%s had %s with their companion this week.", name, plural(len(shared), "chat message", "chat messages")),
		fmt.Sprintf("%s sent back with calm encouragement.", plural(replies, "response", "responses")),
		memoryLine,
	}, " ")

	return strings.Join([]string{
		"Weekly Care Report for " + name,
		"",
		summary,
		"",
		"Recent things they shared:",
		shares,
		"",
		"Memory highlights:",
		highlights,
		"",
		"This report is automatically generated from companion chats and saved memories.",
	}, "\n")
}
