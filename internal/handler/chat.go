package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"CareCompanion/internal/companion"
	"CareCompanion/internal/models"
	"CareCompanion/internal/safety"
	"CareCompanion/pkg/errors"
	"CareCompanion/pkg/llm"
	"CareCompanion/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	chatHistoryForReply = 20
	chatHistoryPage     = 50
	avoidTopicsForReply = 8
)

type chatboxRequest struct {
	UserID string `json:"userId"`
	Input  string `json:"input"`
}

type chatData struct {
	FirstTurn      bool   `json:"firstTurn"`
	Response       string `json:"response"`
	ReasoningModel string `json:"reasoningModel"`
	VoiceModel     string `json:"voiceModel"`
}

// handleChatbox 对话入口：安全检测优先，其次才是模型回复
func (h *Handlers) handleChatbox(c *gin.Context) {
	var req chatboxRequest
	_ = c.ShouldBindJSON(&req)
	input := strings.TrimSpace(req.Input)
	if input == "" {
		response.FailWithStatus(c, http.StatusBadRequest, "Please share a little about how you are feeling.", nil)
		return
	}
	userID := subjectOrAnonymous(req.UserID)
	ctx := c.Request.Context()

	mem, firstTurn, err := companion.BeginTurn(ctx, h.Memory, userID, input, h.Now())
	if err != nil {
		h.Logger.Warn("chat memory unavailable", zap.String("user_id", userID), zap.Error(err))
	}

	alert := h.Matcher.Analyze(input)
	if !alert.IsNormal() {
		h.persistMessage(userID, models.RoleUser, input)
		h.chatSafetyReply(c, userID, input, firstTurn, alert)
		return
	}

	// 先取历史再写入本轮，避免本轮输入重复出现在上下文里
	history := h.replyHistory(ctx, userID)
	h.persistMessage(userID, models.RoleUser, input)

	reply, err := h.reply(ctx, input, history, llm.ReplyOptions{
		FirstTurn:   firstTurn,
		AvoidTopics: mem.RecentAvoidTopics(avoidTopicsForReply),
	})
	if err != nil {
		h.Logger.Error("chat reply failed", zap.String("user_id", userID), zap.Error(err))
		response.FailWithStatus(c, http.StatusInternalServerError, "I had trouble answering just now… can we try again in a moment?", nil)
		return
	}
	ttsText := h.forSpeech(reply)
	audioURL := h.speak(ctx, ttsText)
	h.persistMessage(userID, models.RoleAssistant, ttsText)

	response.Success(c, "", gin.H{
		"data": chatData{
			FirstTurn:      firstTurn,
			Response:       ttsText,
			ReasoningModel: h.LLMModel,
			VoiceModel:     h.TTSModel,
		},
		"ttsText":   ttsText,
		"audioUrl":  audioURL,
		"timestamp": h.timestamp(),
	})
}

func (h *Handlers) chatSafetyReply(c *gin.Context, userID, input string, firstTurn bool, alert safety.SafetyAlert) {
	// 用户断开连接也要把通知发完
	ctx := context.WithoutCancel(c.Request.Context())
	out := h.Escalator.Escalate(ctx, safety.Incident{
		SubjectID: userID,
		Alert:     alert,
		Context:   input,
		Source:    "chatbox",
	})

	emergency := alert.Level.RequiresCaregiver()
	msg := alert.Message
	if msg == "" {
		msg = safety.Reassure(alert.Level)
	}
	text := h.forSpeech(strings.TrimSpace("Safety first. " + msg))
	audioURL := h.speak(ctx, text)
	h.persistMessage(userID, models.RoleAssistant, text)

	reasoning := "Safety check-in"
	if emergency {
		reasoning = "Safety protocol"
	}
	response.Success(c, "", gin.H{
		"emergency": emergency,
		"alert":     alert,
		"alertId":   out.AlertID,
		"notified":  out.Notified,
		"data": chatData{
			FirstTurn:      firstTurn,
			Response:       text,
			ReasoningModel: reasoning,
			VoiceModel:     h.TTSModel,
		},
		"ttsText":   text,
		"audioUrl":  audioURL,
		"timestamp": h.timestamp(),
	})
}

func (h *Handlers) replyHistory(ctx context.Context, userID string) []llm.Message {
	if h.Store == nil {
		return nil
	}
	rows, err := h.Store.RecentMessages(ctx, userID, chatHistoryForReply)
	if err != nil {
		h.Logger.Warn("load chat history", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	history := make([]llm.Message, 0, len(rows))
	for _, row := range rows {
		role := llm.RoleAssistant
		if row.Role == models.RoleUser {
			role = llm.RoleUser
		}
		history = append(history, llm.Message{Role: role, Text: row.Content})
	}
	return history
}

func (h *Handlers) reply(ctx context.Context, input string, history []llm.Message, opts llm.ReplyOptions) (string, error) {
	if h.LLM == nil {
		return "", errors.NotConfigured("LLM_API_KEY")
	}
	start := time.Now()
	text, err := h.LLM.Reply(ctx, input, history, opts)
	if h.Metrics != nil {
		h.Metrics.ObserveUpstream("llm", start, err)
	}
	return text, err
}

type historyItem struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// handleChatHistory 最近 50 条；查询失败时返回空列表
func (h *Handlers) handleChatHistory(c *gin.Context) {
	userID := c.Param("userId")
	items := []historyItem{}
	if h.Store != nil {
		rows, err := h.Store.RecentMessages(c.Request.Context(), userID, chatHistoryPage)
		if err != nil {
			h.Logger.Warn("chat history unavailable, returning empty", zap.String("user_id", userID), zap.Error(err))
		}
		for _, row := range rows {
			kind := "companion"
			if row.Role == models.RoleUser {
				kind = "user"
			}
			items = append(items, historyItem{
				Type:      kind,
				Text:      row.Content,
				Timestamp: row.CreatedAt.UTC().Format(safety.TimeLayout),
			})
		}
	}
	response.Success(c, "", items)
}

// handleChatSearch 按关键词回看某位用户的对话
func (h *Handlers) handleChatSearch(c *gin.Context) {
	userID := c.Param("userId")
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.FailWithStatus(c, http.StatusBadRequest, "Search text is required.", nil)
		return
	}
	if h.Search == nil {
		response.FailWithStatus(c, http.StatusServiceUnavailable, "Search is not enabled.", nil)
		return
	}
	hits, err := h.Search.Search(c.Request.Context(), userID, q, clampLimit(c.Query("limit"), 10, 50))
	if err != nil {
		h.Logger.Warn("transcript search", zap.String("user_id", userID), zap.Error(err))
		response.FailWithStatus(c, http.StatusInternalServerError, "Search failed.", nil)
		return
	}
	for i := range hits {
		if hits[i].Role != models.RoleUser {
			hits[i].Role = "companion"
		}
	}
	response.Success(c, "", gin.H{"query": q, "hits": hits})
}
