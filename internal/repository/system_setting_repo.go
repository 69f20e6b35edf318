package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skillhub/internal/model"
)

// SystemSettingRepository 系统设置数据访问接口
type SystemSettingRepository interface {
	Get(ctx context.Context, category, key string) (*model.SystemSetting, error)
	ListByCategory(ctx context.Context, category string) ([]model.SystemSetting, error)
	Upsert(ctx context.Context, setting *model.SystemSetting) error
}

type systemSettingRepo struct {
	db *gorm.DB
}

// NewSystemSettingRepo 创建 SystemSettingRepository 实例
func NewSystemSettingRepo(db *gorm.DB) SystemSettingRepository {
	return &systemSettingRepo{db: db}
}

func (r *systemSettingRepo) Get(ctx context.Context, category, key string) (*model.SystemSetting, error) {
	var setting model.SystemSetting
	err := r.db.WithContext(ctx).
		Where("category = ? AND key = ?", category, key).
		First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *systemSettingRepo) ListByCategory(ctx context.Context, category string) ([]model.SystemSetting, error) {
	var settings []model.SystemSetting
	err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("key ASC").
		Find(&settings).Error
	return settings, err
}

func (r *systemSettingRepo) Upsert(ctx context.Context, setting *model.SystemSetting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "category"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "type", "updated_by", "updated_at"}),
		}).
		Create(setting).Error
}
