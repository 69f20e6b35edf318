package handler

import (
	"github.com/gin-gonic/gin"

	"skillhub/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 身份由上游认证网关注入（见 middleware.Identity），缺失时写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}
