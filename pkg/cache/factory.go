package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// NewCache 创建缓存实例
func NewCache(config Config) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch strings.ToLower(config.Type) {
	case "", "gocache", "local", "memory":
		c = NewGoCache(config.Local)
	case "redis":
		c, err = NewRedisCache(config.Redis)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
	if config.Prefix != "" {
		c = &prefixed{prefix: config.Prefix, next: c}
	}
	return c, nil
}

// prefixed 给所有键加统一前缀
type prefixed struct {
	prefix string
	next   Cache
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.next.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.next.Set(ctx, p.prefix+key, value, ttl)
}

func (p *prefixed) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return p.next.SetNX(ctx, p.prefix+key, value, ttl)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.next.Delete(ctx, p.prefix+key)
}

func (p *prefixed) TTL(ctx context.Context, key string) (time.Duration, bool) {
	return p.next.TTL(ctx, p.prefix+key)
}

func (p *prefixed) Close() error { return p.next.Close() }
