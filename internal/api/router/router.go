package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"skillhub/config"
	"skillhub/internal/api/handler"
	"skillhub/internal/api/middleware"
	"skillhub/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil，此时限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORSAllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1（身份由上游网关注入）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Identity())
	{
		// 出勤模块（本人）
		attendance := v1.Group("/attendance")
		{
			attendance.POST("", h.Attendance.Register)
			attendance.POST("/cancel", h.Attendance.Cancel)
			attendance.GET("/monthly", h.Attendance.MonthlySummary)
		}

		// 班次模块
		shifts := v1.Group("/shifts")
		{
			shifts.GET("", h.Shift.ListShifts)
			shifts.POST("", middleware.RoleAuth(middleware.RoleAdmin), h.Shift.CreateShift)
			shifts.DELETE("/:id", middleware.RoleAuth(middleware.RoleAdmin), h.Shift.DeleteShift)
		}

		// 系统设置模块
		settings := v1.Group("/settings")
		settings.Use(middleware.RoleAuth(middleware.RoleAdmin))
		{
			settings.GET("/:category", h.Settings.ListSettings)
			settings.PUT("/:category/:key", h.Settings.UpdateSetting)
		}

		// Slack 频道管理（运维手动触发）
		slack := v1.Group("/slack")
		slack.Use(middleware.RoleAuth(middleware.RoleAdmin))
		slack.Use(middleware.RateLimit(rdb, "slack", cfg.Server.RunRateLimit, cfg.Server.RunRateWindow, logger))
		{
			slack.POST("/channels/run", h.Channel.Run)
			slack.POST("/users/sync", h.Channel.SyncUsers)
		}
	}

	return r
}
