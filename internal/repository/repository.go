package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor 事务执行器：fn 内拿到的 Repository 全部绑定同一事务，fn 返回错误即回滚
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *Repository) error) error
}

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User          UserRepository
	Shift         ShiftRepository
	Attendance    AttendanceRepository
	SlackChannel  SlackChannelRepository
	SystemSetting SystemSettingRepository
	AuditLog      AuditLogRepository
	Tx            Transactor
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:          NewUserRepo(db),
		Shift:         NewShiftRepo(db),
		Attendance:    NewAttendanceRepo(db),
		SlackChannel:  NewSlackChannelRepo(db),
		SystemSetting: NewSystemSettingRepo(db),
		AuditLog:      NewAuditLogRepo(db),
		Tx:            &gormTransactor{db: db},
	}
}

type gormTransactor struct {
	db *gorm.DB
}

func (t *gormTransactor) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
