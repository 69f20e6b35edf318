package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"skillhub/internal/model"
)

// SlackChannelRepository Slack 频道记录数据访问接口
type SlackChannelRepository interface {
	Create(ctx context.Context, channel *model.SlackChannel) error
	ExistsDailyForShift(ctx context.Context, shiftID string, date time.Time) (bool, error)
	// ListActiveDaily 目标日期未归档的 daily 频道（预加载班次，用于企业过滤）
	ListActiveDaily(ctx context.Context, date time.Time) ([]model.SlackChannel, error)
	// ListExpired channel_date 早于 before 且未归档的频道
	ListExpired(ctx context.Context, before time.Time) ([]model.SlackChannel, error)
	MarkArchived(ctx context.Context, rowID string) error
}

type slackChannelRepo struct {
	db *gorm.DB
}

// NewSlackChannelRepo 创建 SlackChannelRepository 实例
func NewSlackChannelRepo(db *gorm.DB) SlackChannelRepository {
	return &slackChannelRepo{db: db}
}

func (r *slackChannelRepo) Create(ctx context.Context, channel *model.SlackChannel) error {
	return r.db.WithContext(ctx).Create(channel).Error
}

func (r *slackChannelRepo) ExistsDailyForShift(ctx context.Context, shiftID string, date time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SlackChannel{}).
		Where("shift_id = ? AND channel_date = ? AND type = ?",
			shiftID, date.Format(model.DateLayout), model.SlackChannelTypeDaily).
		Count(&count).Error
	return count > 0, err
}

func (r *slackChannelRepo) ListActiveDaily(ctx context.Context, date time.Time) ([]model.SlackChannel, error) {
	var channels []model.SlackChannel
	err := r.db.WithContext(ctx).
		Preload("Shift").
		Where("channel_date = ? AND type = ? AND is_archived = ?",
			date.Format(model.DateLayout), model.SlackChannelTypeDaily, false).
		Order("created_at ASC").
		Find(&channels).Error
	return channels, err
}

func (r *slackChannelRepo) ListExpired(ctx context.Context, before time.Time) ([]model.SlackChannel, error) {
	var channels []model.SlackChannel
	err := r.db.WithContext(ctx).
		Where("channel_date < ? AND is_archived = ?", before.Format(model.DateLayout), false).
		Order("channel_date ASC").
		Find(&channels).Error
	return channels, err
}

func (r *slackChannelRepo) MarkArchived(ctx context.Context, rowID string) error {
	return r.db.WithContext(ctx).
		Model(&model.SlackChannel{}).
		Where("slack_channel_row_id = ?", rowID).
		Updates(map[string]interface{}{
			"is_archived": true,
			"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}
