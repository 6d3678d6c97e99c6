package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success 统一成功响应；data 为 gin.H 时直接展开到顶层
func Success(c *gin.Context, msg string, data any) {
	body := gin.H{"success": true}
	if msg != "" {
		body["message"] = msg
	}
	merge(body, data)
	c.JSON(http.StatusOK, body)
}

// Fail 业务失败，仍返回 200
func Fail(c *gin.Context, msg string, data any) {
	FailWithStatus(c, http.StatusOK, msg, data)
}

// FailWithStatus 指定 HTTP 状态码的失败响应
func FailWithStatus(c *gin.Context, status int, msg string, data any) {
	body := gin.H{"success": false, "error": msg}
	merge(body, data)
	c.AbortWithStatusJSON(status, body)
}

func merge(body gin.H, data any) {
	switch v := data.(type) {
	case nil:
	case gin.H:
		for k, val := range v {
			body[k] = val
		}
	case map[string]any:
		for k, val := range v {
			body[k] = val
		}
	default:
		body["data"] = v
	}
}
