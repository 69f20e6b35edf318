package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"skillhub/internal/dto"
	"skillhub/internal/service"
	"skillhub/pkg/response"
)

// ShiftHandler 讲师班次 HTTP 处理器
type ShiftHandler struct {
	shiftSvc service.ShiftService
}

// NewShiftHandler 创建 ShiftHandler
func NewShiftHandler(shiftSvc service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shiftSvc: shiftSvc}
}

// CreateShift 创建班次
// POST /api/v1/shifts
func (h *ShiftHandler) CreateShift(c *gin.Context) {
	var req dto.CreateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.shiftSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.Created(c, result)
}

// DeleteShift 删除班次
// DELETE /api/v1/shifts/:id
func (h *ShiftHandler) DeleteShift(c *gin.Context) {
	if err := h.shiftSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListShifts 按日期查询班次
// GET /api/v1/shifts?date=2025-03-05
func (h *ShiftHandler) ListShifts(c *gin.Context) {
	var req dto.ShiftListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.shiftSvc.ListByDate(c.Request.Context(), req.Date)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, list)
}

// handleShiftError 统一处理班次模块业务错误
func (h *ShiftHandler) handleShiftError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 10001, "日期格式无效")
	case errors.Is(err, service.ErrShiftNotFound):
		response.NotFound(c, 22001, "班次不存在")
	case errors.Is(err, service.ErrShiftDuplicate):
		response.Conflict(c, 22002, "该讲师当天已有班次")
	case errors.Is(err, service.ErrShiftInPast):
		response.BadRequest(c, 22003, "不能操作过去日期的班次")
	case errors.Is(err, service.ErrShiftChannelCreated):
		response.Conflict(c, 22004, "班次频道已创建，不能删除")
	case errors.Is(err, service.ErrShiftTimeRange):
		response.BadRequest(c, 22005, "结束时间必须晚于开始时间")
	default:
		response.InternalError(c)
	}
}
