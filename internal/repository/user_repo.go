package repository

import (
	"context"

	"gorm.io/gorm"

	"skillhub/internal/model"
)

// UserRepository 用户数据访问接口（本模块只读写 Slack 身份）
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	ListWithoutSlackIdentity(ctx context.Context, limit int) ([]model.User, error)
	SetSlackUserID(ctx context.Context, userID, slackUserID string) error
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("user_id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) ListWithoutSlackIdentity(ctx context.Context, limit int) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("(slack_user_id IS NULL OR slack_user_id = '') AND email <> ''").
		Order("created_at ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *userRepo) SetSlackUserID(ctx context.Context, userID, slackUserID string) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"slack_user_id": slackUserID,
			"updated_at":    gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}
