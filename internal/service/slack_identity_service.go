package service

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"skillhub/internal/dto"
	"skillhub/internal/repository"
)

// defaultSyncLimit 单次同步最多处理的用户数
const defaultSyncLimit = 500

// SlackIdentityService 按邮箱为用户绑定 Slack 账号
type SlackIdentityService interface {
	Sync(ctx context.Context, limit int) (*dto.SlackSyncReport, error)
}

type slackIdentityService struct {
	repo       *repository.Repository
	settings   SettingsService
	newGateway GatewayFactory
	logger     *zap.Logger
}

// NewSlackIdentityService 创建 SlackIdentityService 实例
func NewSlackIdentityService(repo *repository.Repository, settings SettingsService, newGateway GatewayFactory, logger *zap.Logger) SlackIdentityService {
	return &slackIdentityService{repo: repo, settings: settings, newGateway: newGateway, logger: logger}
}

func (s *slackIdentityService) Sync(ctx context.Context, limit int) (*dto.SlackSyncReport, error) {
	report := &dto.SlackSyncReport{}

	settings, err := s.settings.LoadSlackSettings(ctx)
	if err != nil {
		return nil, err
	}
	gw := s.newGateway(settings)
	if !gw.IsEnabled() {
		report.Disabled = true
		return report, nil
	}

	if limit <= 0 {
		limit = defaultSyncLimit
	}
	users, err := s.repo.User.ListWithoutSlackIdentity(ctx, limit)
	if err != nil {
		s.logger.Error("查询未绑定 Slack 的用户失败", zap.Error(err))
		return nil, err
	}

	var errs []error
	for _, u := range users {
		report.Checked++
		su, err := gw.FindUserByEmail(ctx, u.Email)
		if err != nil {
			if slackReason(err) == "users_not_found" {
				report.NotFound++
				continue
			}
			report.Failed++
			s.logger.Warn("按邮箱查找 Slack 用户失败", zap.String("user_id", u.UserID), zap.Error(err))
			continue
		}
		if err := s.repo.User.SetSlackUserID(ctx, u.UserID, su.ID); err != nil {
			report.Failed++
			errs = append(errs, err)
			continue
		}
		report.Linked++
	}

	s.logger.Info("Slack 身份同步完成",
		zap.Int("checked", report.Checked),
		zap.Int("linked", report.Linked),
		zap.Int("not_found", report.NotFound),
		zap.Int("failed", report.Failed))
	return report, multierr.Combine(errs...)
}
