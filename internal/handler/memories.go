package handlers

import (
	"context"
	"net/http"
	"strings"

	"CareCompanion/internal/companion"
	"CareCompanion/internal/models"
	"CareCompanion/internal/safety"
	"CareCompanion/pkg/notification"
	"CareCompanion/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	eventWeeklyReport = "weekly_report_email"

	memoryPageDefault = 25
	memoryPageMax     = 100
	weeklyChatWindow  = 200
	weeklyMemories    = 20
)

type memoryRequest struct {
	UserID     string `json:"userId"`
	StoryInput string `json:"storyInput"`
}

// memoryView 列表与保存返回同一结构
type memoryView struct {
	companion.StoryMemory
	ImageURL  *string `json:"imageUrl"`
	Timestamp string  `json:"timestamp,omitempty"`
}

func newMemoryView(m models.Memory) memoryView {
	tags := []string{}
	if m.Tags != "" {
		tags = strings.Split(m.Tags, ",")
	}
	return memoryView{
		StoryMemory: companion.StoryMemory{
			Title:     m.Title,
			Era:       m.Era,
			Story:     m.Story,
			StoryFull: m.StoryFull,
			Tags:      tags,
		},
		Timestamp: m.CreatedAt.UTC().Format(safety.TimeLayout),
	}
}

// handleSaveMemory 回忆录：保存一段故事
func (h *Handlers) handleSaveMemory(c *gin.Context) {
	var req memoryRequest
	_ = c.ShouldBindJSON(&req)
	if strings.TrimSpace(req.StoryInput) == "" {
		response.FailWithStatus(c, http.StatusBadRequest, "Please share a memory with me.", nil)
		return
	}
	userID := subjectOrAnonymous(req.UserID)
	ctx := c.Request.Context()

	story := companion.SummarizeStory(req.StoryInput)
	ttsText := h.forSpeech(h.Persona.MemoryPrompt() + ` I've saved your story about "` + story.Title + `".`)
	audioURL := h.speak(ctx, ttsText)

	record := &models.Memory{
		UserID:    userID,
		Title:     story.Title,
		Era:       story.Era,
		Story:     story.Story,
		StoryFull: story.StoryFull,
		Tags:      strings.Join(story.Tags, ","),
		CreatedAt: h.Now(),
	}
	if h.Store != nil {
		if err := h.Store.Append(ctx, models.TableMemories, record); err != nil {
			h.Logger.Error("save memory", zap.String("user_id", userID), zap.Error(err))
			response.FailWithStatus(c, http.StatusInternalServerError, "I had trouble saving that... can we try once more?", nil)
			return
		}
	}

	response.Success(c, "", gin.H{
		"data":      newMemoryView(*record),
		"ttsText":   ttsText,
		"audioUrl":  audioURL,
		"timestamp": h.timestamp(),
	})
}

func (h *Handlers) handleListMemories(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	limit := clampLimit(c.Query("limit"), memoryPageDefault, memoryPageMax)
	views := []memoryView{}
	if h.Store != nil {
		rows, err := h.Store.RecentMemories(c.Request.Context(), userID, limit)
		if err != nil {
			h.Logger.Error("load memories", zap.String("user_id", userID), zap.Error(err))
			response.FailWithStatus(c, http.StatusInternalServerError, "Could not load memories.", nil)
			return
		}
		for _, m := range rows {
			views = append(views, newMemoryView(m))
		}
	}
	response.Success(c, "", views)
}

type buddyRequest struct {
	UserID      string `json:"userId"`
	MessageFrom string `json:"messageFrom"`
	MessageText string `json:"messageText"`
}

// handleBuddy 朋友留言：总结后读给用户听
func (h *Handlers) handleBuddy(c *gin.Context) {
	var req buddyRequest
	_ = c.ShouldBindJSON(&req)
	userID := subjectOrAnonymous(req.UserID)
	ctx := c.Request.Context()

	note := companion.SummarizeBuddyMessage(req.MessageFrom)
	ttsText := h.forSpeech(note.Summary + " " + h.Persona.SocialEncouragement())
	audioURL := h.speak(ctx, ttsText)

	if h.Store != nil {
		record := &models.BuddyMessage{
			UserID:      userID,
			MessageFrom: req.MessageFrom,
			Summary:     note.Summary,
			Tone:        note.Tone,
			Suggestion:  note.Suggestion,
			CreatedAt:   h.Now(),
		}
		if err := h.Store.Append(ctx, models.TableBuddyMessages, record); err != nil {
			h.Logger.Warn("save buddy message", zap.String("user_id", userID), zap.Error(err))
		}
	}

	response.Success(c, "", gin.H{
		"data":      note,
		"ttsText":   ttsText,
		"audioUrl":  audioURL,
		"timestamp": h.timestamp(),
	})
}

type weeklyReportRequest struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

func (h *Handlers) handleWeeklyReport(c *gin.Context) {
	var req weeklyReportRequest
	_ = c.ShouldBindJSON(&req)
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		response.FailWithStatus(c, http.StatusBadRequest, "User ID is required.", nil)
		return
	}

	report := h.weeklyReport(c.Request.Context(), userID, req.UserName)
	h.sendWeeklyReport(report)
	response.Success(c, "", gin.H{
		"sentTo":    h.CareCircleEmail,
		"report":    report.Body,
		"timestamp": report.Timestamp,
	})
}

// weeklyReport 读取失败时按空记录生成
func (h *Handlers) weeklyReport(ctx context.Context, userID, userName string) notification.Report {
	var (
		chats    []models.ChatMessage
		memories []models.Memory
		err      error
	)
	if h.Store != nil {
		if chats, err = h.Store.RecentMessages(ctx, userID, weeklyChatWindow); err != nil {
			h.Logger.Warn("weekly report chats", zap.String("user_id", userID), zap.Error(err))
		}
		if memories, err = h.Store.RecentMemories(ctx, userID, weeklyMemories); err != nil {
			h.Logger.Warn("weekly report memories", zap.String("user_id", userID), zap.Error(err))
		}
	}
	name := strings.TrimSpace(userName)
	if name == "" {
		name = companion.DefaultReportName
	}
	return notification.Report{
		SubjectID: userID,
		Recipient: h.CareCircleEmail,
		Subject:   "Weekly report for " + name,
		Body: companion.BuildWeeklyReport(companion.WeeklyInput{
			UserName: name,
			Chats:    chats,
			Memories: memories,
			Now:      h.Now(),
		}),
		Timestamp: h.timestamp(),
	}
}

func (h *Handlers) sendWeeklyReport(report notification.Report) {
	if h.Notifier == nil {
		return
	}
	h.detach(eventWeeklyReport+":"+report.SubjectID, func(ctx context.Context) error {
		return h.Notifier.SendReport(ctx, eventWeeklyReport, report)
	})
}

// SendWeeklyReports 定时任务：给最近一周聊过天的用户发周报
func (h *Handlers) SendWeeklyReports(ctx context.Context) error {
	if h.Store == nil {
		return nil
	}
	ids, err := h.Store.ActiveUsers(ctx, h.Now().Add(-companion.WeeklyLookback))
	if err != nil {
		return err
	}
	for _, id := range ids {
		h.sendWeeklyReport(h.weeklyReport(ctx, id, ""))
	}
	h.Logger.Info("weekly reports queued", zap.Int("count", len(ids)))
	return nil
}
