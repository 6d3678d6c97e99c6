package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"CareCompanion/internal/companion"
	"CareCompanion/internal/models"
	"CareCompanion/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const eventMoodAlert = "mood_alert"

type checkInRequest struct {
	UserID    string `json:"userId"`
	UserInput string `json:"userInput"`
}

// handleCheckIn 每日签到，情绪低落时通知看护圈
func (h *Handlers) handleCheckIn(c *gin.Context) {
	var req checkInRequest
	_ = c.ShouldBindJSON(&req)
	userID := subjectOrAnonymous(req.UserID)
	ctx := c.Request.Context()

	plan, emotion := companion.PlanFor(req.UserInput)
	ttsText := h.Persona.CheckInMessage(plan.Mood) + " " + plan.Summary
	audioURL := h.speak(ctx, ttsText)

	if h.Store != nil {
		record := &models.CheckIn{
			UserID:    userID,
			Mood:      string(plan.Mood),
			Emotion:   string(emotion),
			Input:     req.UserInput,
			Response:  ttsText,
			CreatedAt: h.Now(),
		}
		if err := h.Store.Append(ctx, models.TableCheckIns, record); err != nil {
			h.Logger.Warn("save check-in", zap.String("user_id", userID), zap.Error(err))
		}
	}

	if plan.Mood == companion.MoodLow && h.Notifier != nil {
		payload := map[string]any{"userId": userID, "mood": string(companion.MoodLow), "timestamp": h.timestamp()}
		h.detach(eventMoodAlert+":"+userID, func(ctx context.Context) error {
			return h.Notifier.SendEvent(ctx, eventMoodAlert, payload)
		})
	}

	response.Success(c, "", gin.H{
		"data":      plan,
		"ttsText":   ttsText,
		"audioUrl":  audioURL,
		"timestamp": h.timestamp(),
	})
}

type wellnessLogRequest struct {
	UserID string `json:"userId"`
	Type   string `json:"type" binding:"required"`
	Value  string `json:"value"`
}

func (h *Handlers) handleWellnessLog(c *gin.Context) {
	var req wellnessLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailWithStatus(c, http.StatusBadRequest, "Activity type is required.", nil)
		return
	}
	userID := subjectOrAnonymous(req.UserID)
	ctx := c.Request.Context()

	if h.Store != nil {
		record := &models.WellnessLog{UserID: userID, Type: req.Type, Value: req.Value, CreatedAt: h.Now()}
		if err := h.Store.Append(ctx, models.TableWellnessLogs, record); err != nil {
			h.Logger.Error("save wellness log", zap.String("user_id", userID), zap.Error(err))
			response.FailWithStatus(c, http.StatusInternalServerError, "Could not log activity", nil)
			return
		}
	}

	praise := companion.WellnessPraise(req.Type)
	response.Success(c, "", gin.H{
		"ttsText":   praise,
		"audioUrl":  h.speak(ctx, h.forSpeech(praise)),
		"timestamp": h.timestamp(),
	})
}

type ttsRequest struct {
	Text string `json:"text"`
}

func (h *Handlers) handleTTS(c *gin.Context) {
	var req ttsRequest
	_ = c.ShouldBindJSON(&req)
	text := strings.TrimSpace(req.Text)
	if text == "" {
		response.FailWithStatus(c, http.StatusBadRequest, "Text is required.", nil)
		return
	}
	audioURL := h.speak(c.Request.Context(), h.forSpeech(text))
	if audioURL == nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "Could not generate audio.", nil)
		return
	}
	response.Success(c, "", gin.H{
		"audioUrl":  *audioURL,
		"timestamp": h.timestamp(),
	})
}

const (
	defaultDailyGlasses = 8
	waterLogType        = "water"
)

// handleNudges 当前的健康提醒：用药、喝水、天气、活动
func (h *Handlers) handleNudges(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		response.FailWithStatus(c, http.StatusBadRequest, "User ID is required.", nil)
		return
	}
	ctx := c.Request.Context()
	now := h.Now()

	in := companion.NudgeInputs{
		TimeOfDay: c.DefaultQuery("timeOfDay", "morning"),
		Mood:      companion.Mood(c.DefaultQuery("mood", string(companion.MoodOK))),
		Hydration: companion.HydrationGoal{DailyGlasses: h.DailyGlasses},
		Stress:    c.Query("stress"),
		Now:       now,
	}
	if raw := c.Query("temp"); raw != "" {
		temp, err := cast.ToFloat64E(raw)
		if err != nil {
			response.FailWithStatus(c, http.StatusBadRequest, "Temperature must be a number.", nil)
			return
		}
		in.Weather = &companion.Weather{Temp: temp, Condition: strings.ToLower(c.Query("condition"))}
	}

	if h.Store != nil {
		meds, err := h.Store.Medications(ctx, userID)
		if err != nil {
			h.Logger.Error("load medications", zap.String("user_id", userID), zap.Error(err))
			response.FailWithStatus(c, http.StatusInternalServerError, "Could not get wellness nudges", nil)
			return
		}
		for _, m := range meds {
			in.Medications = append(in.Medications, companion.MedicationSchedule{
				Name:     m.Name,
				Dosage:   m.Dosage,
				Times:    splitTimes(m.Times),
				WithFood: m.WithFood,
			})
		}
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		drunk, err := h.Store.CountWellnessLogs(ctx, userID, waterLogType, startOfDay)
		if err != nil {
			h.Logger.Warn("count water logs", zap.String("user_id", userID), zap.Error(err))
		}
		in.Hydration.CurrentGlasses = int(drunk)
	}

	response.Success(c, "", gin.H{
		"data":      companion.WellnessNudges(in),
		"timestamp": h.timestamp(),
	})
}

type medicationRequest struct {
	UserID   string   `json:"userId"`
	Name     string   `json:"name" binding:"required"`
	Dosage   string   `json:"dosage"`
	Times    []string `json:"times" binding:"required,min=1"`
	WithFood bool     `json:"withFood"`
	Notes    string   `json:"notes"`
}

// handleAddMedication 看护人录入用药计划，时间按整点 "HH:00" 提醒
func (h *Handlers) handleAddMedication(c *gin.Context) {
	var req medicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailWithStatus(c, http.StatusBadRequest, "Medication name and times are required.", nil)
		return
	}
	for i, t := range req.Times {
		at, err := time.Parse("15:04", strings.TrimSpace(t))
		if err != nil {
			response.FailWithStatus(c, http.StatusBadRequest, "Times must look like 08:00.", nil)
			return
		}
		req.Times[i] = at.Format("15:04")
	}
	userID := subjectOrAnonymous(req.UserID)
	record := &models.Medication{
		UserID:    userID,
		Name:      req.Name,
		Dosage:    req.Dosage,
		Times:     strings.Join(req.Times, ","),
		WithFood:  req.WithFood,
		Notes:     req.Notes,
		CreatedAt: h.Now(),
	}
	if h.Store != nil {
		if err := h.Store.Append(c.Request.Context(), models.TableMedications, record); err != nil {
			h.Logger.Error("save medication", zap.String("user_id", userID), zap.Error(err))
			response.FailWithStatus(c, http.StatusInternalServerError, "Could not save medication", nil)
			return
		}
	}
	response.Success(c, "", record)
}

func splitTimes(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
