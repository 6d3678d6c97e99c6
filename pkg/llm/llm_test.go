package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"CareCompanion/pkg/errors"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt(ReplyOptions{})
	assert.Equal(t, basePrompt, p)

	p = SystemPrompt(ReplyOptions{FirstTurn: true, AvoidTopics: []string{"a", "one", "two!", "three", "four", "five", "six", "seven"}})
	assert.Contains(t, p, "topics unless the user specifically asks: two, three, four, five, six, seven.")
	assert.NotContains(t, p, "one,")
	assert.Contains(t, p, "first conversation today")
}

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	TopP        float32 `json:"top_p"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newServer(t *testing.T, reply string, got *chatRequest) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  got.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"total_tokens": 42},
		})
	}))
}

func TestHandlerReply(t *testing.T) {
	var got chatRequest
	srv := newServer(t, "  Hello dear… did you have some water?  ", &got)
	defer srv.Close()

	h, err := NewHandler(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1/", Model: "gemini-2.0-flash"}, logrus.New())
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", h.Model())

	out, err := h.Reply(context.Background(), "Good morning", []Message{
		{Role: RoleUser, Text: "hi"},
		{Role: RoleAssistant, Text: "Hello… how are you?"},
		{Role: RoleUser, Text: "   "},
	}, ReplyOptions{FirstTurn: true})
	require.NoError(t, err)
	assert.Equal(t, "Hello dear… did you have some water?", out)

	assert.Equal(t, "gemini-2.0-flash", got.Model)
	assert.InDelta(t, 0.6, got.Temperature, 1e-6)
	assert.Equal(t, 220, got.MaxTokens)
	assert.InDelta(t, 0.9, got.TopP, 1e-6)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, "Good morning", got.Messages[3].Content)
}

func TestHandlerErrors(t *testing.T) {
	_, err := NewHandler(Config{}, nil)
	assert.True(t, errors.IsCode(err, errors.CodeNotConfigured))

	var got chatRequest
	srv := newServer(t, "", &got)
	defer srv.Close()
	h, err := NewHandler(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"}, nil)
	require.NoError(t, err)
	_, err = h.Reply(context.Background(), "hi", nil, ReplyOptions{})
	assert.True(t, errors.IsCode(err, errors.CodeUpstream))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota"}}`, http.StatusTooManyRequests)
	}))
	defer down.Close()
	h, _ = NewHandler(Config{APIKey: "test-key", BaseURL: down.URL}, nil)
	_, err = h.Reply(context.Background(), "hi", nil, ReplyOptions{})
	assert.True(t, errors.IsCode(err, errors.CodeUpstream))
}
