package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by helpers that require a key to exist.
var ErrNotFound = errors.New("cache: key not found")

// Cache 缓存接口，值一律是字节串，编码由调用方决定
type Cache interface {
	// Get 获取缓存值；第二个返回值表示是否命中
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set 设置缓存值，ttl<=0 表示使用默认过期时间
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX 仅在键不存在时设置，返回是否设置成功
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete 删除缓存
	Delete(ctx context.Context, key string) error

	// TTL 剩余过期时间；键不存在时第二个返回值为 false
	TTL(ctx context.Context, key string) (time.Duration, bool)

	// Close 关闭缓存连接
	Close() error
}

// Config 缓存配置
type Config struct {
	// 缓存类型: "gocache"（进程内）或 "redis"
	Type string `json:"type"`

	// 所有键的统一前缀
	Prefix string `json:"prefix"`

	Redis RedisConfig `json:"redis"`
	Local LocalConfig `json:"local"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr         string        `json:"addr"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// LocalConfig 本地缓存配置
type LocalConfig struct {
	// 默认过期时间
	DefaultExpiration time.Duration `json:"default_expiration"`

	// 清理间隔
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// DefaultConfig 进程内缓存，键前缀 carecompanion:
func DefaultConfig() Config {
	return Config{
		Type:   "gocache",
		Prefix: "carecompanion:",
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Local: LocalConfig{
			DefaultExpiration: 24 * time.Hour,
			CleanupInterval:   10 * time.Minute,
		},
	}
}
