package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"skillhub/internal/dto"
	"skillhub/internal/service"
	"skillhub/pkg/response"
)

// 手动运行与客户端连接解耦，断开后仍需完成已开始的外部写入与标记
const (
	channelRunTimeout = 30 * time.Minute
	userSyncTimeout   = 10 * time.Minute
)

// ChannelHandler Slack 频道管理 HTTP 处理器
type ChannelHandler struct {
	channelSvc  service.ChannelService
	identitySvc service.SlackIdentityService
}

// NewChannelHandler 创建 ChannelHandler
func NewChannelHandler(channelSvc service.ChannelService, identitySvc service.SlackIdentityService) *ChannelHandler {
	return &ChannelHandler{channelSvc: channelSvc, identitySvc: identitySvc}
}

// Run 手动触发一次频道管理
// POST /api/v1/slack/channels/run
func (h *ChannelHandler) Run(c *gin.Context) {
	var req dto.ChannelRunRequest
	// 允许空请求体：等同于按时刻自动判定
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), channelRunTimeout)
	defer cancel()

	report, err := h.channelSvc.Run(ctx, &req, nil)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRunDate) {
			response.BadRequest(c, 10001, "日期格式无效，应为 YYYY-MM-DD")
			return
		}
		// 运行失败时仍返回已收集的报告，便于排查
		c.JSON(http.StatusInternalServerError, response.Response{
			Code:    24001,
			Message: "频道管理运行失败",
			Data:    report,
			Details: err.Error(),
		})
		return
	}

	response.OK(c, report)
}

// SyncUsers 按邮箱同步 Slack 身份
// POST /api/v1/slack/users/sync
func (h *ChannelHandler) SyncUsers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), userSyncTimeout)
	defer cancel()

	report, err := h.identitySvc.Sync(ctx, 0)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, report)
}
