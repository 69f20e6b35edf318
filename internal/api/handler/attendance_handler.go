package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"skillhub/internal/dto"
	"skillhub/internal/service"
	"skillhub/pkg/response"
)

// AttendanceHandler 出勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// Register 登记出勤
// POST /api/v1/attendance
func (h *AttendanceHandler) Register(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AttendanceDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.Register(c.Request.Context(), userID, &req, c.ClientIP())
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.Created(c, result)
}

// Cancel 取消出勤
// POST /api/v1/attendance/cancel
func (h *AttendanceHandler) Cancel(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AttendanceDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.Cancel(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// MonthlySummary 月度出勤统计
// GET /api/v1/attendance/monthly?month=2025-03
func (h *AttendanceHandler) MonthlySummary(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AttendanceMonthlyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.MonthlySummary(c.Request.Context(), userID, req.Month)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// handleAttendanceError 统一处理出勤模块业务错误
func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 10001, "日期格式无效")
	case errors.Is(err, service.ErrAttendanceDateOutOfRange):
		response.BadRequest(c, 21001, "只能登记今天或明天的出勤")
	case errors.Is(err, service.ErrRegistrationNotOpen):
		response.BadRequest(c, 21002, "当天出勤登记 07:55 开放")
	case errors.Is(err, service.ErrAlreadyRegistered):
		response.Conflict(c, 21003, "已登记出勤")
	case errors.Is(err, service.ErrAttendanceNotFound):
		response.NotFound(c, 21004, "出勤记录不存在")
	case errors.Is(err, service.ErrAlreadyCancelled):
		response.Conflict(c, 21005, "出勤已取消")
	default:
		response.InternalError(c)
	}
}
