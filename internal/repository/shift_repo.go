package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"skillhub/internal/model"
	pkgerrors "skillhub/pkg/errors"
)

// ShiftRepository 班次数据访问接口
type ShiftRepository interface {
	Create(ctx context.Context, shift *model.Shift) error
	GetByID(ctx context.Context, id string) (*model.Shift, error)
	ExistsForTeacherOnDate(ctx context.Context, teacherID string, date time.Time) (bool, error)
	ListByDate(ctx context.Context, date time.Time) ([]model.Shift, error)
	// ListPendingChannel 目标日期 status=scheduled 且频道未创建的班次（预加载讲师与语言）
	ListPendingChannel(ctx context.Context, date time.Time) ([]model.Shift, error)
	// MarkChannelCreated 仅在 slack_channel_created=false 时写入，否则返回 ErrChannelAlreadyCreated
	MarkChannelCreated(ctx context.Context, shiftID, channelID string) error
	Delete(ctx context.Context, id string) error
}

type shiftRepo struct {
	db *gorm.DB
}

// NewShiftRepo 创建 ShiftRepository 实例
func NewShiftRepo(db *gorm.DB) ShiftRepository {
	return &shiftRepo{db: db}
}

func (r *shiftRepo) Create(ctx context.Context, shift *model.Shift) error {
	return r.db.WithContext(ctx).Create(shift).Error
}

func (r *shiftRepo) GetByID(ctx context.Context, id string) (*model.Shift, error) {
	var shift model.Shift
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Preload("Language").
		Where("shift_id = ?", id).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *shiftRepo) ExistsForTeacherOnDate(ctx context.Context, teacherID string, date time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Shift{}).
		Where("teacher_id = ? AND shift_date = ?", teacherID, date.Format(model.DateLayout)).
		Count(&count).Error
	return count > 0, err
}

func (r *shiftRepo) ListByDate(ctx context.Context, date time.Time) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Preload("Language").
		Where("shift_date = ?", date.Format(model.DateLayout)).
		Order("start_time ASC, created_at ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) ListPendingChannel(ctx context.Context, date time.Time) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Preload("Language").
		Where("shift_date = ? AND status = ? AND slack_channel_created = ?",
			date.Format(model.DateLayout), model.ShiftStatusScheduled, false).
		Order("created_at ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) MarkChannelCreated(ctx context.Context, shiftID, channelID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Shift{}).
		Where("shift_id = ? AND slack_channel_created = ?", shiftID, false).
		Updates(map[string]interface{}{
			"slack_channel_id":      channelID,
			"slack_channel_created": true,
			"updated_at":            gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrChannelAlreadyCreated
	}
	return nil
}

func (r *shiftRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("shift_id = ?", id).
		Delete(&model.Shift{}).Error
}
