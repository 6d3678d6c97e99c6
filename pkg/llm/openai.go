package llm

import (
	"context"
	"strings"

	"CareCompanion/pkg/errors"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Config for any OpenAI-compatible chat endpoint (OpenAI, Gemini's OpenAI
// layer, LM Studio, Ollama).
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// Handler answers chat turns through go-openai.
type Handler struct {
	client *openai.Client
	cfg    Config
	logger *logrus.Logger
}

// NewHandler returns a NotConfigured error when no API key is set.
func NewHandler(cfg Config, logger *logrus.Logger) (*Handler, error) {
	if cfg.APIKey == "" {
		return nil, errors.NotConfigured("LLM api key")
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.6
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 220
	}
	if cfg.TopP == 0 {
		cfg.TopP = 0.9
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &Handler{client: openai.NewClientWithConfig(oc), cfg: cfg, logger: logger}, nil
}

func (h *Handler) Model() string { return h.cfg.Model }

func (h *Handler) Reply(ctx context.Context, input string, history []Message, opts ReplyOptions) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(opts)})
	for _, m := range history {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		role := openai.ChatMessageRoleAssistant
		if m.Role == RoleUser {
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: input})

	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       h.cfg.Model,
		Messages:    msgs,
		Temperature: h.cfg.Temperature,
		MaxTokens:   h.cfg.MaxTokens,
		TopP:        h.cfg.TopP,
	})
	if err != nil {
		h.logger.WithError(err).WithField("model", h.cfg.Model).Error("chat completion failed")
		return "", errors.Upstream(err, "llm")
	}
	for _, choice := range resp.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			h.logger.WithFields(logrus.Fields{
				"model":  h.cfg.Model,
				"tokens": resp.Usage.TotalTokens,
			}).Debug("chat reply generated")
			return text, nil
		}
	}
	return "", errors.WithCode(errors.CodeUpstream, "empty response from llm")
}
