package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"CareCompanion/internal/companion"
	"CareCompanion/internal/safety"
	"CareCompanion/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type empathyRequest struct {
	UserID    string `json:"userId"`
	UserInput string `json:"userInput"`
}

// handleEmpathy 共情回复；紧急 / 严重时先走升级流程
func (h *Handlers) handleEmpathy(c *gin.Context) {
	var req empathyRequest
	_ = c.ShouldBindJSON(&req)
	ctx := context.WithoutCancel(c.Request.Context())

	alert := h.Matcher.Analyze(req.UserInput)
	if alert.Level.RequiresCaregiver() {
		out := h.Escalator.Escalate(ctx, safety.Incident{
			SubjectID: subjectOrUnknown(req.UserID),
			Alert:     alert,
			Context:   req.UserInput,
			Source:    "empathy",
		})
		reassurance := safety.Reassure(alert.Level)
		response.Success(c, "", gin.H{
			"emergency": true,
			"alert":     alert,
			"alertId":   out.AlertID,
			"notified":  out.Notified,
			"data":      gin.H{"emotion": "emergency", "response": reassurance},
			"ttsText":   reassurance,
			"audioUrl":  h.speak(ctx, reassurance),
			"timestamp": h.timestamp(),
		})
		return
	}

	emotion := companion.DetectEmotion(req.UserInput)
	reply := h.Persona.EmpatheticResponse(emotion)
	var concern any
	if alert.Level == safety.LevelConcern {
		concern = alert
	}
	response.Success(c, "", gin.H{
		"emergency": false,
		"alert":     concern,
		"data":      gin.H{"emotion": emotion, "response": reply},
		"ttsText":   reply,
		"audioUrl":  h.speak(ctx, reply),
		"timestamp": h.timestamp(),
	})
}

type vitalsRequest struct {
	UserID string               `json:"userId"`
	Vitals *safety.VitalsSample `json:"vitals"`
}

// handleVitals 穿戴设备上报
func (h *Handlers) handleVitals(c *gin.Context) {
	var req vitalsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Vitals == nil {
		response.FailWithStatus(c, http.StatusBadRequest, "Could not process vitals data", nil)
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())

	alert := safety.ClassifyVitals(*req.Vitals)
	if alert.Level.RequiresCaregiver() {
		out := h.Escalator.Escalate(ctx, safety.Incident{
			SubjectID: subjectOrUnknown(req.UserID),
			Alert:     alert,
			Vitals:    req.Vitals,
			Source:    "vitals",
		})
		reassurance := safety.Reassure(alert.Level)
		response.Success(c, "", gin.H{
			"alert":     alert,
			"alertId":   out.AlertID,
			"notified":  out.Notified,
			"ttsText":   reassurance,
			"audioUrl":  h.speak(ctx, reassurance),
			"timestamp": h.timestamp(),
		})
		return
	}

	body := gin.H{"alert": alert, "timestamp": h.timestamp()}
	if alert.IsNormal() {
		body["message"] = "Vitals within normal range"
	}
	response.Success(c, "", body)
}

type safetyCheckRequest struct {
	UserID string               `json:"userId"`
	Text   string               `json:"text"`
	Vitals *safety.VitalsSample `json:"vitals"`
}

// handleSafetyCheck 文本与体征合并判断，非 normal 一律升级
func (h *Handlers) handleSafetyCheck(c *gin.Context) {
	var req safetyCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailWithStatus(c, http.StatusBadRequest, "Could not read the safety check.", nil)
		return
	}
	if strings.TrimSpace(req.Text) == "" && req.Vitals == nil {
		response.FailWithStatus(c, http.StatusBadRequest, "Text or vitals are required.", nil)
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())

	alert := safety.ResolveInputs(req.Text, req.Vitals)
	if alert.IsNormal() {
		response.Success(c, "", gin.H{"alert": alert, "timestamp": h.timestamp()})
		return
	}
	out := h.Escalator.Escalate(ctx, safety.Incident{
		SubjectID: subjectOrUnknown(req.UserID),
		Alert:     alert,
		Vitals:    req.Vitals,
		Context:   req.Text,
		Source:    "check",
	})
	reassurance := safety.Reassure(alert.Level)
	response.Success(c, "", gin.H{
		"emergency":   alert.Level.RequiresCaregiver(),
		"alert":       alert,
		"alertId":     out.AlertID,
		"notified":    out.Notified,
		"emailQueued": out.EmailQueued,
		"ttsText":     reassurance,
		"audioUrl":    h.speak(ctx, reassurance),
		"timestamp":   h.timestamp(),
	})
}

type emergencyRequest struct {
	UserID   string           `json:"userId"`
	Type     string           `json:"type"`
	Location *safety.Location `json:"location"`
}

// handleManualEmergency 求助按钮，总是升级
func (h *Handlers) handleManualEmergency(c *gin.Context) {
	var req emergencyRequest
	_ = c.ShouldBindJSON(&req)
	ctx := context.WithoutCancel(c.Request.Context())

	alert := safety.ManualTrigger(req.Type)
	vitals := &safety.VitalsSample{Location: req.Location, Timestamp: h.timestamp()}
	out := h.Escalator.Escalate(ctx, safety.Incident{
		SubjectID: subjectOrUnknown(req.UserID),
		Alert:     alert,
		Vitals:    vitals,
		Source:    "manual",
	})
	reassurance := safety.Reassure(alert.Level)
	response.Success(c, "", gin.H{
		"alert":     alert,
		"alertId":   out.AlertID,
		"notified":  out.Notified,
		"ttsText":   reassurance,
		"audioUrl":  h.speak(ctx, reassurance),
		"timestamp": h.timestamp(),
	})
}

func (h *Handlers) handleCheckInQuestions(c *gin.Context) {
	timeOfDay := c.DefaultQuery("timeOfDay", "morning")
	response.Success(c, "", gin.H{
		"data": gin.H{
			"greeting":  companion.Greeting(timeOfDay),
			"questions": safety.CheckInQuestions(timeOfDay),
		},
	})
}

// handleSafetyStream 看护端实时事件
func (h *Handlers) handleSafetyStream(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		response.FailWithStatus(c, http.StatusBadRequest, "User ID is required.", nil)
		return
	}
	if h.Hub == nil {
		response.FailWithStatus(c, http.StatusServiceUnavailable, "Live updates are not enabled.", nil)
		return
	}
	h.Hub.Serve(c, userID)
}

// handleSafetySocket 同 stream，走 websocket
func (h *Handlers) handleSafetySocket(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		response.FailWithStatus(c, http.StatusBadRequest, "User ID is required.", nil)
		return
	}
	if h.Socket == nil {
		response.FailWithStatus(c, http.StatusServiceUnavailable, "Live updates are not enabled.", nil)
		return
	}
	h.Socket.Serve(c, userID)
}

func subjectOrUnknown(id string) string {
	if id = strings.TrimSpace(id); id == "" {
		return "unknown"
	}
	return id
}

const (
	safetyEventsDefault = 20
	safetyEventsMax     = 100
)

type safetyEventView struct {
	AlertID     string          `json:"alertId"`
	Level       string          `json:"level"`
	Source      string          `json:"source"`
	Detected    []string        `json:"detected"`
	Actions     []string        `json:"actions"`
	Context     string          `json:"context,omitempty"`
	Vitals      json.RawMessage `json:"vitals,omitempty"`
	Notified    bool            `json:"notified"`
	EmailQueued bool            `json:"emailQueued"`
	Timestamp   string          `json:"timestamp"`
}

func decodeList(raw string) []string {
	out := []string{}
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &out)
	}
	return out
}

// handleSafetyEvents 看护端查看历史升级记录，最新在前
func (h *Handlers) handleSafetyEvents(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	limit := clampLimit(c.Query("limit"), safetyEventsDefault, safetyEventsMax)
	views := []safetyEventView{}
	if h.Store != nil {
		rows, err := h.Store.SafetyEvents(c.Request.Context(), userID, limit)
		if err != nil {
			h.Logger.Error("load safety events", zap.String("user_id", userID), zap.Error(err))
			response.FailWithStatus(c, http.StatusInternalServerError, "Could not load safety events.", nil)
			return
		}
		for _, e := range rows {
			v := safetyEventView{
				AlertID:     e.AlertID,
				Level:       e.Level,
				Source:      e.Source,
				Detected:    decodeList(e.Detected),
				Actions:     decodeList(e.Actions),
				Context:     e.Context,
				Notified:    e.Notified,
				EmailQueued: e.EmailQueued,
				Timestamp:   e.CreatedAt.UTC().Format(safety.TimeLayout),
			}
			if e.Vitals != "" && json.Valid([]byte(e.Vitals)) {
				v.Vitals = json.RawMessage(e.Vitals)
			}
			views = append(views, v)
		}
	}
	response.Success(c, "", views)
}
