package companion

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"CareCompanion/pkg/cache"
)

const (
	dayLayout = "2006-01-02"

	// avoid topics kept per subject
	maxAvoidTopics = 16
)

// ChatMemory is advisory per-subject state that shapes conversational tone.
type ChatMemory struct {
	LastEmotion string   `json:"lastEmotion,omitempty"`
	CheckedInOn string   `json:"checkedInOn,omitempty"`
	AvoidTopics []string `json:"avoidTopics,omitempty"`
}

// FirstTurn reports whether the subject has not been checked in on day.
func (m ChatMemory) FirstTurn(day time.Time) bool {
	return m.CheckedInOn != day.Format(dayLayout)
}

// AddAvoidTopics appends new topics, moving repeats to the end and dropping
// the oldest past the cap.
func (m *ChatMemory) AddAvoidTopics(topics ...string) {
	for _, t := range topics {
		if i := slices.Index(m.AvoidTopics, t); i >= 0 {
			m.AvoidTopics = slices.Delete(m.AvoidTopics, i, i+1)
		}
		m.AvoidTopics = append(m.AvoidTopics, t)
	}
	if over := len(m.AvoidTopics) - maxAvoidTopics; over > 0 {
		m.AvoidTopics = slices.Clone(m.AvoidTopics[over:])
	}
}

// RecentAvoidTopics returns at most n of the newest topics, oldest first.
func (m ChatMemory) RecentAvoidTopics(n int) []string {
	if n <= 0 || len(m.AvoidTopics) == 0 {
		return []string{}
	}
	start := max(len(m.AvoidTopics)-n, 0)
	return slices.Clone(m.AvoidTopics[start:])
}

// MemoryStore holds ChatMemory by subject id. Concurrent writers for the same
// subject race; the last Save wins.
type MemoryStore interface {
	Get(ctx context.Context, subject string) (ChatMemory, error)
	Save(ctx context.Context, subject string, m ChatMemory) error
}

// CacheMemoryStore keeps memory JSON-encoded in a cache.Cache, so the same
// code serves an in-process go-cache or a shared redis.
type CacheMemoryStore struct {
	c   cache.Cache
	ttl time.Duration
}

func NewCacheMemoryStore(c cache.Cache, ttl time.Duration) *CacheMemoryStore {
	return &CacheMemoryStore{c: c, ttl: ttl}
}

func memoryKey(subject string) string { return "memory:" + subject }

// Get returns the zero memory for unknown subjects.
func (s *CacheMemoryStore) Get(ctx context.Context, subject string) (ChatMemory, error) {
	var m ChatMemory
	raw, ok, err := s.c.Get(ctx, memoryKey(subject))
	if err != nil {
		return m, fmt.Errorf("load chat memory %s: %w", subject, err)
	}
	if !ok {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return ChatMemory{}, fmt.Errorf("decode chat memory %s: %w", subject, err)
	}
	return m, nil
}

func (s *CacheMemoryStore) Save(ctx context.Context, subject string, m ChatMemory) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := s.c.Set(ctx, memoryKey(subject), raw, s.ttl); err != nil {
		return fmt.Errorf("save chat memory %s: %w", subject, err)
	}
	return nil
}

// BeginTurn loads the subject's memory, marks today's check-in and records
// any topics the input asks to avoid. firstTurn is computed before the mark.
func BeginTurn(ctx context.Context, store MemoryStore, subject, input string, now time.Time) (m ChatMemory, firstTurn bool, err error) {
	m, err = store.Get(ctx, subject)
	if err != nil {
		// 记忆只是辅助信息，读取失败按新会话处理
		m = ChatMemory{}
	}
	firstTurn = m.FirstTurn(now)
	m.CheckedInOn = now.Format(dayLayout)
	m.AddAvoidTopics(ExtractDiscomfortTopics(input)...)
	if saveErr := store.Save(ctx, subject, m); saveErr != nil && err == nil {
		err = saveErr
	}
	return m, firstTurn, err
}
