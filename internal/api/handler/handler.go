package handler

import "skillhub/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Attendance *AttendanceHandler
	Shift      *ShiftHandler
	Settings   *SettingsHandler
	Channel    *ChannelHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Attendance: NewAttendanceHandler(svc.Attendance),
		Shift:      NewShiftHandler(svc.Shift),
		Settings:   NewSettingsHandler(svc.Settings),
		Channel:    NewChannelHandler(svc.Channel, svc.SlackIdentity),
	}
}
