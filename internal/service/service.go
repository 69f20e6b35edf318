package service

import (
	"go.uber.org/zap"

	"skillhub/config"
	"skillhub/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Settings      SettingsService
	Channel       ChannelService
	Attendance    AttendanceService
	Shift         ShiftService
	SlackIdentity SlackIdentityService
}

// Deps 外部依赖；Locker 为 nil 时频道管理不加锁
type Deps struct {
	Gateway  GatewayFactory
	Locker   RunLocker
	Notifier ErrorNotifier
	Clock    Clock
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	deps Deps,
	logger *zap.Logger,
) *Service {
	settings := NewSettingsService(cfg, repo, logger)
	return &Service{
		Settings:      settings,
		Channel:       NewChannelService(repo, settings, deps.Gateway, deps.Locker, deps.Notifier, deps.Clock, logger),
		Attendance:    NewAttendanceService(repo, deps.Clock, logger),
		Shift:         NewShiftService(repo, deps.Clock, logger),
		SlackIdentity: NewSlackIdentityService(repo, settings, deps.Gateway, logger),
	}
}
