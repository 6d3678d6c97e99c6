package handlers

import (
	"context"
	"strings"
	"time"

	"CareCompanion/internal/companion"
	"CareCompanion/internal/models"
	"CareCompanion/internal/safety"
	"CareCompanion/pkg/errors"
	"CareCompanion/pkg/search"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const anonymousUser = "anonymous"

func (h *Handlers) timestamp() string {
	return h.Now().UTC().Format(safety.TimeLayout)
}

func subjectOrAnonymous(id string) string {
	if id = strings.TrimSpace(id); id == "" {
		return anonymousUser
	}
	return id
}

// speak 合成语音；失败时返回 nil，页面按无音频处理
func (h *Handlers) speak(ctx context.Context, text string) *string {
	if h.TTS == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	start := time.Now()
	url, err := h.TTS.Synthesize(ctx, text)
	if h.Metrics != nil {
		h.Metrics.ObserveUpstream("tts", start, err)
	}
	if err != nil {
		if errors.IsCode(err, errors.CodeNotConfigured) {
			h.Logger.Debug("tts skipped", zap.Error(err))
		} else {
			h.Logger.Warn("tts failed", zap.Error(err))
		}
		return nil
	}
	return &url
}

// tts 文本统一格式，不加安抚前缀
func (h *Handlers) forSpeech(text string) string {
	return h.Persona.FormatForTTS(text, companion.TTSOptions{})
}

// detach 在请求结束后继续执行；没有 Runner 时同步执行
func (h *Handlers) detach(name string, fn func(ctx context.Context) error) {
	if h.Runner != nil {
		h.Runner.Go(name, fn)
		return
	}
	if err := fn(context.Background()); err != nil {
		h.Logger.Warn("task failed", zap.String("task", name), zap.Error(err))
	}
}

func (h *Handlers) persistMessage(userID, role, text string) {
	if h.Store == nil || text == "" {
		return
	}
	msg := &models.ChatMessage{UserID: userID, Role: role, Content: text, CreatedAt: h.Now()}
	h.detach(models.TableChatMessages+":"+role, func(ctx context.Context) error {
		if err := h.Store.Append(ctx, models.TableChatMessages, msg); err != nil {
			return err
		}
		if h.Search == nil {
			return nil
		}
		return h.Search.Add(ctx, search.Entry{
			UserID:    msg.UserID,
			Role:      msg.Role,
			Text:      msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	})
}

// clampLimit parses a ?limit= value; unparsable input gives def.
func clampLimit(raw string, def, maxLimit int) int {
	n, err := cast.ToIntE(raw)
	if raw == "" || err != nil {
		return def
	}
	return min(max(n, 1), maxLimit)
}
