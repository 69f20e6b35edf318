package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"skillhub/internal/model"
)

// AttendanceRepository 出勤数据访问接口
type AttendanceRepository interface {
	Create(ctx context.Context, attendance *model.Attendance) error
	GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*model.Attendance, error)
	UpdateStatus(ctx context.Context, attendanceID, status string) error
	// MarkPresent 重新登记：status=present，签到时间整体覆盖（nil 写入 NULL）
	MarkPresent(ctx context.Context, attendanceID string, checkInTime *string) error
	ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]model.Attendance, error)

	// ListPendingInvites 目标日期 present、未邀请、且用户已绑定 Slack 的记录
	// companyID 非空时只取该企业的学员
	ListPendingInvites(ctx context.Context, date time.Time, companyID *string) ([]model.AttendanceInvitee, error)
	// MarkInvited 批量写入邀请结果，仅作用于未邀请的行。
	// 不校验 status：邀请期间被取消的行同样记为已邀请，由移出阶段处理
	MarkInvited(ctx context.Context, attendanceIDs []string, channelID string, invitedAt time.Time) (int64, error)
	// ListPendingRemovals 目标日期 cancelled、已邀请、有频道引用且已绑定 Slack 的记录
	ListPendingRemovals(ctx context.Context, date time.Time) ([]model.AttendanceInvitee, error)
	// MarkRemoved 重置邀请标记，保留 slack_channel_id 供审计。
	// 不校验 status：移出期间重新登记的行复位后由邀请阶段重新邀请
	MarkRemoved(ctx context.Context, attendanceID string) (int64, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Create(ctx context.Context, attendance *model.Attendance) error {
	return r.db.WithContext(ctx).Create(attendance).Error
}

func (r *attendanceRepo) GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*model.Attendance, error) {
	var attendance model.Attendance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND attendance_date = ?", userID, date.Format(model.DateLayout)).
		First(&attendance).Error
	if err != nil {
		return nil, err
	}
	return &attendance, nil
}

func (r *attendanceRepo) UpdateStatus(ctx context.Context, attendanceID, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.Attendance{}).
		Where("attendance_id = ?", attendanceID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *attendanceRepo) MarkPresent(ctx context.Context, attendanceID string, checkInTime *string) error {
	var checkIn interface{}
	if checkInTime != nil {
		checkIn = *checkInTime
	}
	return r.db.WithContext(ctx).
		Model(&model.Attendance{}).
		Where("attendance_id = ?", attendanceID).
		Updates(map[string]interface{}{
			"status":        model.AttendanceStatusPresent,
			"check_in_time": checkIn,
			"updated_at":    gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *attendanceRepo) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]model.Attendance, error) {
	var list []model.Attendance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND attendance_date BETWEEN ? AND ?",
			userID, from.Format(model.DateLayout), to.Format(model.DateLayout)).
		Order("attendance_date DESC").
		Find(&list).Error
	return list, err
}

// inviteeColumns 联表投影列
const inviteeColumns = "attendances.attendance_id, attendances.user_id, users.name AS user_name, " +
	"users.slack_user_id, attendances.slack_channel_id"

func (r *attendanceRepo) ListPendingInvites(ctx context.Context, date time.Time, companyID *string) ([]model.AttendanceInvitee, error) {
	var rows []model.AttendanceInvitee
	db := r.db.WithContext(ctx).
		Table("attendances").
		Select(inviteeColumns).
		Joins("JOIN users ON users.user_id = attendances.user_id").
		Where("attendances.attendance_date = ?", date.Format(model.DateLayout)).
		Where("attendances.status = ?", model.AttendanceStatusPresent).
		Where("attendances.slack_invited = ?", false).
		Where("users.slack_user_id IS NOT NULL AND users.slack_user_id <> ''")
	if companyID != nil {
		db = db.Where("users.company_id = ?", *companyID)
	}
	err := db.Order("attendances.created_at ASC").Scan(&rows).Error
	return rows, err
}

func (r *attendanceRepo) MarkInvited(ctx context.Context, attendanceIDs []string, channelID string, invitedAt time.Time) (int64, error) {
	if len(attendanceIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&model.Attendance{}).
		Where("attendance_id IN ? AND slack_invited = ?", attendanceIDs, false).
		Updates(map[string]interface{}{
			"slack_channel_id": channelID,
			"slack_invited":    true,
			"slack_invited_at": invitedAt,
			"updated_at":       gorm.Expr("CURRENT_TIMESTAMP"),
		})
	return result.RowsAffected, result.Error
}

func (r *attendanceRepo) ListPendingRemovals(ctx context.Context, date time.Time) ([]model.AttendanceInvitee, error) {
	var rows []model.AttendanceInvitee
	err := r.db.WithContext(ctx).
		Table("attendances").
		Select(inviteeColumns).
		Joins("JOIN users ON users.user_id = attendances.user_id").
		Where("attendances.attendance_date = ?", date.Format(model.DateLayout)).
		Where("attendances.status = ?", model.AttendanceStatusCancelled).
		Where("attendances.slack_invited = ?", true).
		Where("attendances.slack_channel_id IS NOT NULL").
		Where("users.slack_user_id IS NOT NULL AND users.slack_user_id <> ''").
		Order("attendances.updated_at ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *attendanceRepo) MarkRemoved(ctx context.Context, attendanceID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Attendance{}).
		Where("attendance_id = ? AND slack_invited = ?", attendanceID, true).
		Updates(map[string]interface{}{
			"slack_invited": false,
			"updated_at":    gorm.Expr("CURRENT_TIMESTAMP"),
		})
	return result.RowsAffected, result.Error
}
