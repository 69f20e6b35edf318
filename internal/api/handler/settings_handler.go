package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"skillhub/internal/dto"
	"skillhub/internal/service"
	"skillhub/pkg/response"
)

// SettingsHandler 系统设置 HTTP 处理器
type SettingsHandler struct {
	settingsSvc service.SettingsService
}

// NewSettingsHandler 创建 SettingsHandler
func NewSettingsHandler(settingsSvc service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsSvc: settingsSvc}
}

// ListSettings 查询某分类下的全部设置
// GET /api/v1/settings/:category
func (h *SettingsHandler) ListSettings(c *gin.Context) {
	list, err := h.settingsSvc.ListCategory(c.Request.Context(), c.Param("category"))
	if err != nil {
		h.handleSettingsError(c, err)
		return
	}

	response.OK(c, list)
}

// UpdateSetting 更新单项设置（不存在则创建）
// PUT /api/v1/settings/:category/:key
func (h *SettingsHandler) UpdateSetting(c *gin.Context) {
	var req dto.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.settingsSvc.Update(c.Request.Context(), c.Param("category"), c.Param("key"), &req)
	if err != nil {
		h.handleSettingsError(c, err)
		return
	}

	response.OK(c, result)
}

// handleSettingsError 统一处理设置模块业务错误
func (h *SettingsHandler) handleSettingsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSettingNotFound):
		response.NotFound(c, 23001, "设置项不存在")
	case errors.Is(err, service.ErrSettingNotEditable):
		response.Forbidden(c, 23002, "该设置项不允许修改")
	case errors.Is(err, service.ErrSettingInvalidValue):
		response.ErrorWithDetails(c, 400, 23003, "设置值与类型不匹配", err.Error())
	default:
		response.InternalError(c)
	}
}
