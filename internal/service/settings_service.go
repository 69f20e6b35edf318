package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"skillhub/config"
	"skillhub/internal/dto"
	"skillhub/internal/model"
	"skillhub/internal/repository"
)

// ── 系统设置模块业务错误 ──

var (
	ErrSettingNotFound     = errors.New("设置项不存在")
	ErrSettingNotEditable  = errors.New("该设置项不允许修改")
	ErrSettingInvalidValue = errors.New("设置值与类型不匹配")
)

// SettingCategorySlack Slack 相关设置的分类名
const SettingCategorySlack = "slack"

// SlackSettings 一次运行内使用的 Slack 设置快照
// 配置文件提供默认值，system_settings 中的同名项覆盖
type SlackSettings struct {
	Enabled           bool
	BotToken          string
	APIURL            string
	Timeout           time.Duration
	ChannelPrefix     string
	CreationHour      int
	RetentionDays     int
	InviteWindowStart int
	InviteWindowEnd   int
	AlertChannel      string
	Location          *time.Location
}

// InInviteWindow 当前小时是否落在邀请窗口内（两端均含）
func (s *SlackSettings) InInviteWindow(hour int) bool {
	return hour >= s.InviteWindowStart && hour <= s.InviteWindowEnd
}

// SettingsService 设置读取与管理接口
type SettingsService interface {
	// Get 读取并按存储类型转换；不存在或值为空时返回 def
	Get(ctx context.Context, category, key string, def interface{}) (interface{}, error)
	GetBool(ctx context.Context, category, key string, def bool) (bool, error)
	GetInt(ctx context.Context, category, key string, def int) (int, error)
	GetString(ctx context.Context, category, key string, def string) (string, error)

	LoadSlackSettings(ctx context.Context) (*SlackSettings, error)

	ListCategory(ctx context.Context, category string) ([]dto.SettingResponse, error)
	Update(ctx context.Context, category, key string, req *dto.UpdateSettingRequest) (*dto.SettingResponse, error)
}

type settingsService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSettingsService 创建 SettingsService 实例
func NewSettingsService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) SettingsService {
	return &settingsService{cfg: cfg, repo: repo, logger: logger}
}

// ────────────────────── 读取 ──────────────────────

func (s *settingsService) Get(ctx context.Context, category, key string, def interface{}) (interface{}, error) {
	setting, err := s.repo.SystemSetting.Get(ctx, category, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return def, nil
		}
		s.logger.Error("查询系统设置失败",
			zap.String("category", category), zap.String("key", key), zap.Error(err))
		return def, err
	}
	if setting.Value == nil {
		return def, nil
	}

	v, err := coerceSettingValue(setting.Type, *setting.Value)
	if err != nil {
		s.logger.Warn("设置值无法按类型解析，使用默认值",
			zap.String("category", category), zap.String("key", key),
			zap.String("type", setting.Type), zap.Error(err))
		return def, nil
	}
	return v, nil
}

func (s *settingsService) GetBool(ctx context.Context, category, key string, def bool) (bool, error) {
	v, err := s.Get(ctx, category, key, def)
	if err != nil {
		return def, err
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case int:
		return b != 0, nil
	case string:
		return parseSettingBool(b), nil
	}
	return def, nil
}

func (s *settingsService) GetInt(ctx context.Context, category, key string, def int) (int, error) {
	v, err := s.Get(ctx, category, key, def)
	if err != nil {
		return def, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, nil
		}
	}
	return def, nil
}

func (s *settingsService) GetString(ctx context.Context, category, key string, def string) (string, error) {
	v, err := s.Get(ctx, category, key, def)
	if err != nil {
		return def, err
	}
	switch str := v.(type) {
	case string:
		return str, nil
	case int:
		return strconv.Itoa(str), nil
	case bool:
		return strconv.FormatBool(str), nil
	}
	return def, nil
}

// LoadSlackSettings 构建一次运行的设置快照
func (s *settingsService) LoadSlackSettings(ctx context.Context) (*SlackSettings, error) {
	base := s.cfg.Slack

	loc, err := s.cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}

	out := &SlackSettings{
		APIURL:            base.APIURL,
		Timeout:           base.Timeout,
		InviteWindowStart: base.InviteWindowStart,
		InviteWindowEnd:   base.InviteWindowEnd,
		Location:          loc,
	}

	if out.Enabled, err = s.GetBool(ctx, SettingCategorySlack, "enabled", base.Enabled); err != nil {
		return nil, err
	}
	if out.BotToken, err = s.GetString(ctx, SettingCategorySlack, "bot_token", base.BotToken); err != nil {
		return nil, err
	}
	if out.ChannelPrefix, err = s.GetString(ctx, SettingCategorySlack, "channel_prefix", base.ChannelPrefix); err != nil {
		return nil, err
	}
	if out.RetentionDays, err = s.GetInt(ctx, SettingCategorySlack, "retention_days", base.RetentionDays); err != nil {
		return nil, err
	}
	if out.AlertChannel, err = s.GetString(ctx, SettingCategorySlack, "alert_channel", base.AlertChannel); err != nil {
		return nil, err
	}

	creation, err := s.GetString(ctx, SettingCategorySlack, "channel_creation_time", base.ChannelCreationTime)
	if err != nil {
		return nil, err
	}
	hour, err := parseClockHour(creation)
	if err != nil {
		s.logger.Warn("频道创建时间格式无效，使用 23 点", zap.String("value", creation), zap.Error(err))
		hour = 23
	}
	out.CreationHour = hour

	if out.RetentionDays <= 0 {
		out.RetentionDays = base.RetentionDays
	}
	return out, nil
}

// ────────────────────── 管理接口 ──────────────────────

func (s *settingsService) ListCategory(ctx context.Context, category string) ([]dto.SettingResponse, error) {
	settings, err := s.repo.SystemSetting.ListByCategory(ctx, category)
	if err != nil {
		s.logger.Error("查询设置列表失败", zap.String("category", category), zap.Error(err))
		return nil, err
	}

	list := make([]dto.SettingResponse, 0, len(settings))
	for i := range settings {
		list = append(list, toSettingResponse(&settings[i]))
	}
	return list, nil
}

func (s *settingsService) Update(ctx context.Context, category, key string, req *dto.UpdateSettingRequest) (*dto.SettingResponse, error) {
	setting, err := s.repo.SystemSetting.Get(ctx, category, key)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询系统设置失败", zap.Error(err))
			return nil, err
		}
		setting = &model.SystemSetting{
			Category:   category,
			Key:        key,
			Type:       model.SettingTypeString,
			IsEditable: true,
		}
	}
	if !setting.IsEditable {
		return nil, ErrSettingNotEditable
	}

	if req.Type != "" {
		setting.Type = req.Type
	}
	if _, err := coerceSettingValue(setting.Type, req.Value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSettingInvalidValue, err)
	}

	value := req.Value
	setting.Value = &value
	if req.Description != nil {
		setting.Description = req.Description
	}

	if err := s.repo.SystemSetting.Upsert(ctx, setting); err != nil {
		s.logger.Error("保存系统设置失败", zap.String("category", category), zap.String("key", key), zap.Error(err))
		return nil, err
	}

	s.logger.Info("系统设置已更新", zap.String("category", category), zap.String("key", key))
	resp := toSettingResponse(setting)
	return &resp, nil
}

// ── 辅助 ──

func toSettingResponse(setting *model.SystemSetting) dto.SettingResponse {
	var value interface{}
	if setting.Value != nil {
		if v, err := coerceSettingValue(setting.Type, *setting.Value); err == nil {
			value = v
		} else {
			value = *setting.Value
		}
	}
	return dto.SettingResponse{
		Category:    setting.Category,
		Key:         setting.Key,
		Value:       value,
		Type:        setting.Type,
		Description: setting.Description,
		IsEditable:  setting.IsEditable,
		UpdatedAt:   setting.UpdatedAt.Format(time.RFC3339),
	}
}

// coerceSettingValue 按存储类型转换原始字符串
func coerceSettingValue(typ, raw string) (interface{}, error) {
	switch typ {
	case model.SettingTypeBoolean:
		return parseSettingBool(raw), nil
	case model.SettingTypeInteger:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		return n, nil
	case model.SettingTypeJSON:
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return raw, nil
	}
}

// parseSettingBool "1/true/on/yes" 为真，其余为假
func parseSettingBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// parseClockHour 解析 "HH:MM" 取小时
func parseClockHour(v string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	return t.Hour(), nil
}
