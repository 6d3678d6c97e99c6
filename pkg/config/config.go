package config

import (
	"log"
	"os"
	"time"

	"CareCompanion/pkg/logger"
	"CareCompanion/pkg/util"
)

// Config 全局配置，全部来自环境变量
type Config struct {
	Addr      string `env:"ADDR"`
	Mode      string `env:"MODE"`
	APIPrefix string `env:"API_PREFIX"`
	DBDriver  string `env:"DB_DRIVER"`
	DSN       string `env:"DSN"`
	Log       logger.LogConfig

	LLMApiKey  string `env:"LLM_API_KEY"`
	LLMBaseURL string `env:"LLM_BASE_URL"`
	LLMModel   string `env:"LLM_MODEL"`

	TTSApiKey  string `env:"ELEVENLABS_API_KEY"`
	TTSVoiceID string `env:"ELEVENLABS_VOICE_ID"`
	TTSModel   string `env:"ELEVENLABS_MODEL"`

	WebhookURL      string        `env:"N8N_WEBHOOK_URL"`
	CareCircleEmail string        `env:"CARE_CIRCLE_EMAIL"`
	NotifyTimeout   time.Duration `env:"NOTIFY_TIMEOUT"`

	JPushAppKey       string `env:"JPUSH_APP_KEY"`
	JPushMasterSecret string `env:"JPUSH_MASTER_SECRET"`

	CacheType     string        `env:"CACHE_TYPE"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB"`
	MemoryTTL     time.Duration `env:"MEMORY_TTL"`

	AudioStorageEnabled bool `env:"AUDIO_STORAGE_ENABLED"`

	// 为空时对话检索索引只在内存中
	SearchIndexPath string `env:"SEARCH_INDEX_PATH"`

	RateLimit string `env:"RATE_LIMIT"`

	BackupEnabled  bool   `env:"BACKUP_ENABLED"`
	BackupPath     string `env:"BACKUP_PATH"`
	BackupSchedule string `env:"BACKUP_SCHEDULE"`

	// 为空时不自动发送周报
	WeeklyReportSchedule string `env:"WEEKLY_REPORT_SCHEDULE"`
	DailyWaterGlasses    int    `env:"DAILY_WATER_GLASSES"`
}

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	// 2. 加载全局配置
	GlobalConfig = &Config{
		Addr:      util.GetEnvDefault("ADDR", ":3000"),
		Mode:      util.GetEnvDefault("MODE", env),
		APIPrefix: util.GetEnvDefault("API_PREFIX", "/api"),
		DBDriver:  util.GetEnvDefault("DB_DRIVER", "sqlite"),
		DSN:       util.GetEnvDefault("DSN", "carecompanion.db"),
		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		LLMApiKey:  util.GetEnv("LLM_API_KEY"),
		LLMBaseURL: util.GetEnvDefault("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		LLMModel:   util.GetEnvDefault("LLM_MODEL", "gemini-2.0-flash"),

		TTSApiKey:  util.GetEnv("ELEVENLABS_API_KEY"),
		TTSVoiceID: util.GetEnvDefault("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
		TTSModel:   util.GetEnvDefault("ELEVENLABS_MODEL", "eleven_monolingual_v1"),

		WebhookURL:      util.GetEnv("N8N_WEBHOOK_URL"),
		CareCircleEmail: util.GetEnv("CARE_CIRCLE_EMAIL"),
		NotifyTimeout:   util.GetDurationEnv("NOTIFY_TIMEOUT", 10*time.Second),

		JPushAppKey:       util.GetEnv("JPUSH_APP_KEY"),
		JPushMasterSecret: util.GetEnv("JPUSH_MASTER_SECRET"),

		CacheType:     util.GetEnvDefault("CACHE_TYPE", "gocache"),
		RedisAddr:     util.GetEnvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: util.GetEnv("REDIS_PASSWORD"),
		RedisDB:       int(util.GetIntEnv("REDIS_DB")),
		MemoryTTL:     util.GetDurationEnv("MEMORY_TTL", 7*24*time.Hour),

		AudioStorageEnabled: util.GetBoolEnv("AUDIO_STORAGE_ENABLED"),

		SearchIndexPath: util.GetEnv("SEARCH_INDEX_PATH"),

		RateLimit: util.GetEnvDefault("RATE_LIMIT", "120-M"),

		BackupEnabled:  util.GetBoolEnv("BACKUP_ENABLED"),
		BackupPath:     util.GetEnvDefault("BACKUP_PATH", "backups"),
		BackupSchedule: util.GetEnvDefault("BACKUP_SCHEDULE", "0 3 * * *"),

		WeeklyReportSchedule: util.GetEnv("WEEKLY_REPORT_SCHEDULE"),
		DailyWaterGlasses:    int(util.GetIntEnv("DAILY_WATER_GLASSES")),
	}
	return nil
}
