package cli

import (
	"context"
	"strings"
	"time"

	"CareCompanion/internal/companion"
	handlers "CareCompanion/internal/handler"
	"CareCompanion/internal/safety"
	"CareCompanion/internal/store"
	"CareCompanion/pkg/backup"
	"CareCompanion/pkg/cache"
	"CareCompanion/pkg/config"
	"CareCompanion/pkg/llm"
	"CareCompanion/pkg/logger"
	"CareCompanion/pkg/metrics"
	"CareCompanion/pkg/middleware"
	"CareCompanion/pkg/notification"
	"CareCompanion/pkg/scheduler"
	"CareCompanion/pkg/search"
	"CareCompanion/pkg/sse"
	"CareCompanion/pkg/storage"
	"CareCompanion/pkg/tts"
	"CareCompanion/pkg/util"
	"CareCompanion/pkg/websocket"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds everything serve needs; close releases it in reverse order.
type app struct {
	engine  *gin.Engine
	runner  *scheduler.Runner
	cron    *scheduler.Cron
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	return util.InitDatabase(cfg.DBDriver, cfg.DSN, cfg.Mode == "development")
}

func buildApp(cfg *config.Config) (*app, error) {
	lg := logger.Lg
	a := &app{}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}

	m := metrics.NewMetrics()

	// 分离任务：报告邮件、事件落库、低落情绪通知
	a.runner = scheduler.New(scheduler.MultiSink(scheduler.ZapSink(lg), m), 30*time.Second)
	a.closers = append(a.closers, a.runner.Stop)

	cacheCfg := cache.DefaultConfig()
	cacheCfg.Type = cfg.CacheType
	cacheCfg.Redis.Addr = cfg.RedisAddr
	cacheCfg.Redis.Password = cfg.RedisPassword
	cacheCfg.Redis.DB = cfg.RedisDB
	kv, err := cache.NewCache(cacheCfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = kv.Close() })

	hub := sse.NewHub(25 * time.Second)
	wsHub := websocket.NewHub(websocket.DefaultConfig())
	a.closers = append(a.closers, wsHub.Close)
	channels := []notification.Channel{
		{Name: "webhook", Notifier: notification.NewWebhook(notification.WebhookConfig{
			URL:        cfg.WebhookURL,
			Timeout:    cfg.NotifyTimeout,
			RetryCount: 2,
		}, lg.Named("webhook"))},
		{Name: "stream", Notifier: notification.NewStream(hub)},
		{Name: "socket", Notifier: notification.NewStream(wsHub)},
	}
	if jp := notification.NewJPushClient(notification.JPushConfig{
		AppKey:       cfg.JPushAppKey,
		MasterSecret: cfg.JPushMasterSecret,
	}); jp != nil {
		channels = append(channels, notification.Channel{Name: "jpush", Notifier: notification.NewCaregiverPush(jp)})
	}
	fanout := notification.NewFanout(lg.Named("notify"), channels...)
	lg.Info("notification channels", zap.Strings("channels", fanout.Channels()))

	escalator := safety.NewEscalator(fanout,
		safety.WithStore(st),
		safety.WithRunner(a.runner),
		safety.WithRecorder(m),
		safety.WithLogger(lg.Named("safety")),
		safety.WithCareCircleEmail(cfg.CareCircleEmail))

	// 模型回复沿用 logrus
	llmLog := logrus.New()
	llmLog.SetFormatter(&logrus.JSONFormatter{})
	var replier llm.ChatReplier
	if h, err := llm.NewHandler(llm.Config{
		APIKey:  cfg.LLMApiKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	}, llmLog); err != nil {
		lg.Warn("chat model disabled", zap.Error(err))
	} else {
		replier = h
	}

	var audioStore storage.Store
	if cfg.AudioStorageEnabled {
		ms, err := storage.NewMinioStore(storage.MinioConfigFromEnv())
		if err != nil {
			lg.Warn("audio storage disabled", zap.Error(err))
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := ms.EnsureBucket(ctx); err != nil {
				lg.Warn("audio bucket unavailable, falling back to inline audio", zap.Error(err))
			} else {
				audioStore = ms
			}
			cancel()
		}
	}
	speech := tts.NewElevenLabs(tts.Config{
		APIKey:  cfg.TTSApiKey,
		VoiceID: cfg.TTSVoiceID,
		Model:   cfg.TTSModel,
	}, audioStore, lg.Named("tts"))

	transcripts, err := search.Open(search.Config{IndexPath: cfg.SearchIndexPath})
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = transcripts.Close() })

	limiter, closeLimiter, err := newRateLimiter(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, closeLimiter)

	if cfg.BackupEnabled || cfg.WeeklyReportSchedule != "" {
		a.cron = scheduler.NewCron(time.Local, lg, scheduler.MultiSink(scheduler.ZapSink(lg), m))
		a.closers = append(a.closers, a.cron.Stop)
	}
	if cfg.BackupEnabled {
		b := backup.New(cfg.DBDriver, cfg.DSN, cfg.BackupPath, 7, lg.Named("backup"))
		if _, err := b.Schedule(a.cron, cfg.BackupSchedule); err != nil {
			a.close()
			return nil, err
		}
	}

	if cfg.Mode != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	hs := handlers.NewHandlers(handlers.Deps{
		DB:        db,
		Store:     st,
		Escalator: escalator,
		Memory:    companion.NewCacheMemoryStore(kv, cfg.MemoryTTL),
		Persona:   companion.NewPersona(),
		LLM:       replier,
		LLMModel:  cfg.LLMModel,
		TTS:       speech,
		TTSModel:  cfg.TTSModel,
		Notifier:  fanout,
		Hub:       hub,
		Socket:    wsHub,
		Search:    transcripts,
		Runner:    a.runner,
		Metrics:   m,
		Limiter:   limiter,
		Cache:     kv,
		Logger:    lg.Named("http"),
		APIPrefix: cfg.APIPrefix,

		CareCircleEmail: cfg.CareCircleEmail,
		DailyGlasses:    cfg.DailyWaterGlasses,
	})
	hs.Register(engine)
	a.engine = engine

	if cfg.WeeklyReportSchedule != "" {
		if _, err := a.cron.Add(cfg.WeeklyReportSchedule, "weekly_reports", hs.SendWeeklyReports); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

// newRateLimiter 与缓存共用 redis；本地模式用内存计数
func newRateLimiter(cfg *config.Config) (*middleware.RateLimiter, func(), error) {
	rlCfg := middleware.RateLimiterConfig{
		Rate:       cfg.RateLimit,
		SkipPaths:  []string{cfg.APIPrefix + "/health", cfg.APIPrefix + "/safety/"},
		AddHeaders: true,
		PerRouteRates: map[string]string{
			cfg.APIPrefix + "/tts": "30-M",
		},
	}
	if !strings.EqualFold(cfg.CacheType, "redis") {
		return middleware.NewRateLimiter(rlCfg, nil), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	st, err := middleware.NewRedisLimiterStore(client, "carecompanion:ratelimit")
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return middleware.NewRateLimiter(rlCfg, st), func() { _ = client.Close() }, nil
}
