package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// goCacheWrapper go-cache包装器
type goCacheWrapper struct {
	cache *gocache.Cache
}

// NewGoCache 创建基于go-cache的本地缓存
func NewGoCache(config LocalConfig) Cache {
	exp := config.DefaultExpiration
	if exp == 0 {
		exp = gocache.NoExpiration
	}
	cleanup := config.CleanupInterval
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &goCacheWrapper{cache: gocache.New(exp, cleanup)}
}

func (gc *goCacheWrapper) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, found := gc.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	return b, true, nil
}

func (gc *goCacheWrapper) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	gc.cache.Set(key, clone(value), expiration(ttl))
	return nil
}

func (gc *goCacheWrapper) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	// Add 在键存在时返回错误
	if err := gc.cache.Add(key, clone(value), expiration(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

func (gc *goCacheWrapper) Delete(ctx context.Context, key string) error {
	gc.cache.Delete(key)
	return nil
}

func (gc *goCacheWrapper) TTL(ctx context.Context, key string) (time.Duration, bool) {
	_, exp, found := gc.cache.GetWithExpiration(key)
	if !found {
		return 0, false
	}
	if exp.IsZero() {
		return 0, true
	}
	ttl := time.Until(exp)
	if ttl < 0 {
		ttl = 0
	}
	return ttl, true
}

// go-cache不需要关闭连接
func (gc *goCacheWrapper) Close() error { return nil }

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.DefaultExpiration
	}
	return ttl
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
