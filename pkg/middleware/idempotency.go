package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"CareCompanion/pkg/cache"
	"CareCompanion/pkg/response"

	"github.com/gin-gonic/gin"
)

type IdempotencyConfig struct {
	HeaderName string        // Idempotency-Key 的请求头名
	TTL        time.Duration // 重复请求的拒绝窗口
	Store      cache.Cache
	Prefix     string
}

// IdempotencyMiddleware 拒绝窗口期内的重复提交。
// 没有 Idempotency-Key 时以 路由+请求体 的哈希作为键，设备重发同一条记录会被挡掉。
func IdempotencyMiddleware(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "Idempotency-Key"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "idem:"
	}
	store := cfg.Store
	if store == nil {
		store = cache.NewGoCache(cache.LocalConfig{})
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(cfg.HeaderName))
		if key == "" {
			b, err := io.ReadAll(c.Request.Body)
			if err != nil {
				response.FailWithStatus(c, http.StatusBadRequest, "Unable to read request body.", nil)
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(b))
			h := sha256.Sum256(append([]byte(routeOf(c)+"\x00"), b...))
			key = hex.EncodeToString(h[:])
		}
		ok, err := store.SetNX(c.Request.Context(), cfg.Prefix+key, []byte{1}, cfg.TTL)
		if err != nil {
			// 缓存故障时放行
			c.Next()
			return
		}
		if !ok {
			response.FailWithStatus(c, http.StatusConflict, "Duplicate request.", nil)
			return
		}
		c.Next()
	}
}
