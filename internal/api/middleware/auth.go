package middleware

import (
	"github.com/gin-gonic/gin"

	"skillhub/pkg/response"
)

// 上游认证网关注入的身份头
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// 角色
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Identity 身份注入中间件
// 登录与会话由上游网关负责，本服务只信任其注入的 X-User-ID / X-User-Role
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			response.Unauthorized(c, 10002, "缺少身份信息")
			c.Abort()
			return
		}

		role := c.GetHeader(HeaderUserRole)
		if role == "" {
			role = RoleStudent
		}

		c.Set("user_id", userID)
		c.Set("role", role)

		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		userRole, _ := role.(string)
		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
		c.Abort()
	}
}
