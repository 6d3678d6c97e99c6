package handlers

import (
	"context"
	"time"

	"CareCompanion/internal/companion"
	"CareCompanion/internal/models"
	"CareCompanion/internal/safety"
	"CareCompanion/pkg/cache"
	"CareCompanion/pkg/llm"
	"CareCompanion/pkg/metrics"
	"CareCompanion/pkg/middleware"
	"CareCompanion/pkg/notification"
	"CareCompanion/pkg/search"
	"CareCompanion/pkg/sse"
	"CareCompanion/pkg/tts"
	"CareCompanion/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "CareCompanion"

// InteractionStore is the persistence the HTTP layer needs.
type InteractionStore interface {
	Append(ctx context.Context, table string, record any) error
	RecentMessages(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error)
	RecentMemories(ctx context.Context, userID string, limit int) ([]models.Memory, error)
	SafetyEvents(ctx context.Context, userID string, limit int) ([]models.SafetyEvent, error)
	Medications(ctx context.Context, userID string) ([]models.Medication, error)
	CountWellnessLogs(ctx context.Context, userID, kind string, since time.Time) (int64, error)
	ActiveUsers(ctx context.Context, since time.Time) ([]string, error)
}

// Deps 由 cli 组装后注入；除 Escalator / Store 外均可为空
type Deps struct {
	DB        *gorm.DB
	Store     InteractionStore
	Escalator *safety.Escalator
	Matcher   *safety.PhraseMatcher
	Memory    companion.MemoryStore
	Persona   *companion.Persona
	LLM       llm.ChatReplier
	LLMModel  string
	TTS       tts.Synthesizer
	TTSModel  string
	Notifier  notification.Notifier // mood_alert, weekly report
	Hub       *sse.Hub
	Socket    *websocket.Hub
	Search    *search.Transcripts
	Runner    safety.TaskRunner
	Metrics   *metrics.Metrics
	Limiter   *middleware.RateLimiter
	Cache     cache.Cache // idempotency keys
	Logger    *zap.Logger
	APIPrefix string
	Now       func() time.Time

	CareCircleEmail string
	DailyGlasses    int
}

type Handlers struct {
	Deps
}

func NewHandlers(d Deps) *Handlers {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Matcher == nil {
		d.Matcher = safety.NewPhraseMatcher()
	}
	if d.Persona == nil {
		d.Persona = companion.NewPersona()
	}
	if d.Memory == nil {
		d.Memory = companion.NewCacheMemoryStore(cache.NewGoCache(cache.LocalConfig{}), 0)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.APIPrefix == "" {
		d.APIPrefix = "/api"
	}
	if d.DailyGlasses <= 0 {
		d.DailyGlasses = defaultDailyGlasses
	}
	return &Handlers{Deps: d}
}

func (h *Handlers) Register(engine *gin.Engine) {
	if h.Metrics != nil {
		engine.Use(metrics.MonitorMiddleware(h.Metrics))
		engine.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}

	r := engine.Group(h.APIPrefix)
	if h.Limiter != nil {
		r.Use(h.Limiter.Middleware())
	}

	// Register System Module Routes
	h.registerSystemRoutes(r)

	// Register Business Module Routes
	h.registerChatRoutes(r)
	h.registerSafetyRoutes(r)
	h.registerWellnessRoutes(r)
	h.registerMemoryRoutes(r)
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	r.GET("/health", h.HealthCheck)
}

// Chat Module
func (h *Handlers) registerChatRoutes(r *gin.RouterGroup) {
	chat := r.Group("/chatbox")
	{
		chat.POST("", h.handleChatbox)
		chat.GET("/history/:userId", h.handleChatHistory)
		chat.GET("/search/:userId", h.handleChatSearch)
	}
	r.POST("/empathy", h.handleEmpathy)
	r.POST("/checkin", h.handleCheckIn)
	r.POST("/tts", h.handleTTS)
}

// Safety Module
func (h *Handlers) registerSafetyRoutes(r *gin.RouterGroup) {
	s := r.Group("/safety")
	{
		s.POST("/vitals", h.handleVitals)
		s.POST("/check", h.handleSafetyCheck)
		s.POST("/emergency", h.handleManualEmergency)
		s.GET("/checkin-questions", h.handleCheckInQuestions)
		s.GET("/stream", h.handleSafetyStream)
		s.GET("/ws", h.handleSafetySocket)
		s.GET("/events/:userId", h.handleSafetyEvents)
	}
}

// Wellness Module
func (h *Handlers) registerWellnessRoutes(r *gin.RouterGroup) {
	w := r.Group("/wellness")
	{
		w.POST("/log", middleware.IdempotencyMiddleware(middleware.IdempotencyConfig{
			Store:  h.Cache,
			TTL:    time.Minute,
			Prefix: "idem:wellness:",
		}), h.handleWellnessLog)
		w.GET("/nudges", h.handleNudges)
		w.POST("/medications", h.handleAddMedication)
	}
}

// Memory & social Module
func (h *Handlers) registerMemoryRoutes(r *gin.RouterGroup) {
	m := r.Group("/memory")
	{
		m.POST("", h.handleSaveMemory)
		m.GET("/:userId", h.handleListMemories)
	}
	r.POST("/buddy", h.handleBuddy)
	r.POST("/report/weekly", h.handleWeeklyReport)
}
