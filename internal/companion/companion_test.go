package companion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"CareCompanion/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDiscomfortTopics(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Hospitals make me nervous", []string{"hospitals"}},
		{"Please don't talk about the war. It was long ago.", []string{"the war"}},
		{"Do not mention my sister!", []string{"my sister"}},
		{"I don't like talking about money", []string{"money"}},
		{"Can we stop talking about politics?", []string{"politics"}},
		{"It makes me sad", []string{}},
		{"Lovely weather today", []string{}},
		{"", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractDiscomfortTopics(tc.in))
		})
	}
}

func TestExtractDiscomfortTopicsCapsAndDedupes(t *testing.T) {
	in := "don't mention apples. don't mention pears. don't mention plums. " +
		"don't mention grapes. don't mention melons. don't mention figs. don't mention apples."
	got := ExtractDiscomfortTopics(in)
	assert.Equal(t, []string{"apples", "pears", "plums", "grapes", "melons"}, got)
}

func TestChatMemoryAvoidTopics(t *testing.T) {
	var m ChatMemory
	m.AddAvoidTopics("war", "money")
	m.AddAvoidTopics("war")
	assert.Equal(t, []string{"money", "war"}, m.AvoidTopics)

	for i := 0; i < 20; i++ {
		m.AddAvoidTopics(fmt.Sprintf("topic %d", i))
	}
	assert.Len(t, m.AvoidTopics, maxAvoidTopics)
	assert.Equal(t, "topic 19", m.AvoidTopics[len(m.AvoidTopics)-1])
	assert.Equal(t, []string{"topic 18", "topic 19"}, m.RecentAvoidTopics(2))
	assert.Empty(t, ChatMemory{}.RecentAvoidTopics(8))
}

func TestFirstTurn(t *testing.T) {
	day := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	assert.True(t, ChatMemory{}.FirstTurn(day))
	assert.False(t, ChatMemory{CheckedInOn: "2024-05-01"}.FirstTurn(day))
	assert.True(t, ChatMemory{CheckedInOn: "2024-04-30"}.FirstTurn(day))
}

func memoryStores(t *testing.T) map[string]MemoryStore {
	mr := miniredis.RunT(t)
	local, err := cache.NewCache(cache.Config{Type: "gocache"})
	require.NoError(t, err)
	cfg := cache.DefaultConfig()
	cfg.Type = "redis"
	cfg.Redis.Addr = mr.Addr()
	remote, err := cache.NewCache(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { remote.Close() })
	return map[string]MemoryStore{
		"gocache": NewCacheMemoryStore(local, time.Hour),
		"redis":   NewCacheMemoryStore(remote, time.Hour),
	}
}

func TestBeginTurn(t *testing.T) {
	ctx := context.Background()
	morning := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for name, store := range memoryStores(t) {
		t.Run(name, func(t *testing.T) {
			m, first, err := BeginTurn(ctx, store, "u1", "Hospitals make me nervous", morning)
			require.NoError(t, err)
			assert.True(t, first)
			assert.Equal(t, []string{"hospitals"}, m.AvoidTopics)

			m, first, err = BeginTurn(ctx, store, "u1", "don't mention the war", morning.Add(2*time.Hour))
			require.NoError(t, err)
			assert.False(t, first)
			assert.Equal(t, []string{"hospitals", "the war"}, m.AvoidTopics)

			_, first, err = BeginTurn(ctx, store, "u1", "hello", morning.Add(24*time.Hour))
			require.NoError(t, err)
			assert.True(t, first)

			other, err := store.Get(ctx, "u2")
			require.NoError(t, err)
			assert.Equal(t, ChatMemory{}, other)
		})
	}
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (ChatMemory, error) {
	return ChatMemory{}, errors.New("redis down")
}
func (brokenStore) Save(context.Context, string, ChatMemory) error { return errors.New("redis down") }

func TestBeginTurnDegradesWhenStoreFails(t *testing.T) {
	m, first, err := BeginTurn(context.Background(), brokenStore{}, "u1", "don't mention taxes", time.Now())
	assert.Error(t, err)
	assert.True(t, first)
	assert.Equal(t, []string{"taxes"}, m.AvoidTopics)
}

func TestCacheMemoryStoreRejectsGarbage(t *testing.T) {
	c := cache.NewGoCache(cache.LocalConfig{})
	require.NoError(t, c.Set(context.Background(), "memory:u1", []byte("{not json"), 0))
	_, err := NewCacheMemoryStore(c, 0).Get(context.Background(), "u1")
	assert.Error(t, err)
}

func TestFormatForTTS(t *testing.T) {
	p := NewPersonaWithPicker(func(int) int { return 0 })

	assert.Equal(t, "Let's use the phone… then start it.",
		p.FormatForTTS("Let's Utilize the phone... then initialize it.", TTSOptions{}))
	assert.Equal(t, "Okay, now. Rest! Yes",
		p.FormatForTTS("Okay,now.   Rest!  Yes", TTSOptions{}))
	assert.Equal(t, "It's okay… take your time. Hello",
		p.FormatForTTS("Hello", TTSOptions{IncludeReassurance: true}))
	assert.Equal(t, "implement it...",
		p.FormatForTTS("implement it...", TTSOptions{KeepComplexWords: true, NoPauses: true}))
	assert.Equal(t, "reimplementation", SimplifyLanguage("reimplementation"))
}

func TestDetectEmotionAndMood(t *testing.T) {
	cases := []struct {
		in      string
		emotion Emotion
		mood    Mood
	}{
		{"I'm so worried about tomorrow", EmotionStressed, MoodLow},
		{"I don't understand this remote", EmotionConfused, MoodOK},
		{"I miss my husband", EmotionLonely, MoodLow},
		{"Had a nice tea", EmotionCalm, MoodGood},
	}
	for _, tc := range cases {
		e := DetectEmotion(tc.in)
		assert.Equal(t, tc.emotion, e, tc.in)
		assert.Equal(t, tc.mood, MoodFor(e), tc.in)
	}
}

func TestScriptedLines(t *testing.T) {
	p := NewPersonaWithPicker(func(n int) int { return n - 1 })
	assert.Equal(t, "Even if the room feels empty, I am here with you now.", p.EmpatheticResponse(EmotionLonely))
	assert.Equal(t, p.EmpatheticResponse(EmotionCalm), p.EmpatheticResponse(Emotion("bored")))
	assert.Equal(t, "I'm here with you… let's take things one step at a time today.", p.CheckInMessage(MoodLow))
	assert.Equal(t, "Good evening… let's take a moment together.", Greeting("evening"))
	assert.Equal(t, Greeting("morning"), Greeting(""))

	plan, emotion := PlanFor("I feel so alone")
	assert.Equal(t, EmotionLonely, emotion)
	assert.Equal(t, MoodLow, plan.Mood)
	plan, emotion = PlanFor("")
	assert.Equal(t, EmotionCalm, emotion)
	assert.Equal(t, MoodGood, plan.Mood)

	assert.Equal(t, "Wonderful! Movement is so good for you.", WellnessPraise("activity"))
	assert.Empty(t, WellnessPraise("knitting"))
}
