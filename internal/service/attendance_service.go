package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"skillhub/internal/dto"
	"skillhub/internal/model"
	"skillhub/internal/repository"
)

// ── 出勤模块业务错误 ──

var (
	ErrInvalidDate              = errors.New("日期格式无效")
	ErrAttendanceDateOutOfRange = errors.New("只能登记今天或明天的出勤")
	ErrRegistrationNotOpen      = errors.New("当天出勤登记 07:55 开放")
	ErrAlreadyRegistered        = errors.New("已登记出勤")
	ErrAttendanceNotFound       = errors.New("出勤记录不存在")
	ErrAlreadyCancelled         = errors.New("出勤已取消")
)

// 当日登记开放时刻
const (
	registrationOpenHour   = 7
	registrationOpenMinute = 55
)

// AttendanceService 出勤登记接口
type AttendanceService interface {
	Register(ctx context.Context, userID string, req *dto.AttendanceDateRequest, ip string) (*dto.AttendanceResponse, error)
	Cancel(ctx context.Context, userID string, req *dto.AttendanceDateRequest) (*dto.AttendanceResponse, error)
	MonthlySummary(ctx context.Context, userID, month string) (*dto.AttendanceMonthlyResponse, error)
}

type attendanceService struct {
	repo   *repository.Repository
	clock  Clock
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, clock Clock, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, clock: clock, logger: logger}
}

// ────────────────────── Register ──────────────────────

func (s *attendanceService) Register(ctx context.Context, userID string, req *dto.AttendanceDateRequest, ip string) (*dto.AttendanceResponse, error) {
	now := s.clock.Now()
	date, isToday, err := s.resolveDate(now, req.Date)
	if err != nil {
		return nil, err
	}
	if isToday && !registrationOpen(now) {
		return nil, ErrRegistrationNotOpen
	}

	var checkIn *string
	if isToday {
		t := now.Format("15:04:05")
		checkIn = &t
	}

	existing, err := s.repo.Attendance.GetByUserAndDate(ctx, userID, date)
	switch {
	case err == nil:
		if existing.Status == model.AttendanceStatusPresent {
			return nil, ErrAlreadyRegistered
		}
		if err := s.repo.Attendance.MarkPresent(ctx, existing.AttendanceID, checkIn); err != nil {
			s.logger.Error("更新出勤状态失败", zap.String("attendance_id", existing.AttendanceID), zap.Error(err))
			return nil, err
		}
		existing.Status = model.AttendanceStatusPresent
		existing.CheckInTime = checkIn
	case errors.Is(err, gorm.ErrRecordNotFound):
		existing = &model.Attendance{
			UserID:         userID,
			AttendanceDate: date,
			Status:         model.AttendanceStatusPresent,
			CheckInTime:    checkIn,
			Notes:          req.Notes,
		}
		if ip != "" {
			existing.IPAddress = &ip
		}
		if err := s.repo.Attendance.Create(ctx, existing); err != nil {
			s.logger.Error("创建出勤记录失败", zap.String("user_id", userID), zap.Error(err))
			return nil, err
		}
	default:
		s.logger.Error("查询出勤记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.audit(ctx, model.AuditEventAttendanceRegistered, "create", existing, "出勤登记")
	s.logger.Info("出勤已登记", zap.String("user_id", userID), zap.String("date", req.Date))
	resp := toAttendanceResponse(existing)
	return &resp, nil
}

// ────────────────────── Cancel ──────────────────────

func (s *attendanceService) Cancel(ctx context.Context, userID string, req *dto.AttendanceDateRequest) (*dto.AttendanceResponse, error) {
	date, _, err := s.resolveDate(s.clock.Now(), req.Date)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Attendance.GetByUserAndDate(ctx, userID, date)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceNotFound
		}
		s.logger.Error("查询出勤记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	if existing.Status == model.AttendanceStatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	// slack_invited 保持不变，由频道管理任务移出后复位
	if err := s.repo.Attendance.UpdateStatus(ctx, existing.AttendanceID, model.AttendanceStatusCancelled); err != nil {
		s.logger.Error("取消出勤失败", zap.String("attendance_id", existing.AttendanceID), zap.Error(err))
		return nil, err
	}
	existing.Status = model.AttendanceStatusCancelled

	s.audit(ctx, model.AuditEventAttendanceCancelled, "update", existing, "出勤取消")
	s.logger.Info("出勤已取消", zap.String("user_id", userID), zap.String("date", req.Date))
	resp := toAttendanceResponse(existing)
	return &resp, nil
}

// ────────────────────── MonthlySummary ──────────────────────

func (s *attendanceService) MonthlySummary(ctx context.Context, userID, month string) (*dto.AttendanceMonthlyResponse, error) {
	now := s.clock.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if month != "" {
		m, err := time.ParseInLocation("2006-01", month, now.Location())
		if err != nil {
			return nil, ErrInvalidDate
		}
		start = m
	}
	end := start.AddDate(0, 1, -1)

	rows, err := s.repo.Attendance.ListByUserBetween(ctx, userID, start, end)
	if err != nil {
		s.logger.Error("查询月度出勤失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	resp := &dto.AttendanceMonthlyResponse{
		Month:   start.Format("2006-01"),
		Records: make([]dto.AttendanceResponse, 0, len(rows)),
	}
	for i := range rows {
		switch rows[i].Status {
		case model.AttendanceStatusPresent:
			resp.Present++
		case model.AttendanceStatusLate:
			resp.Late++
		case model.AttendanceStatusAbsent:
			resp.Absent++
		case model.AttendanceStatusCancelled:
			resp.Cancelled++
		}
		resp.StudyMinutes += rows[i].StudyMinutes
		resp.Records = append(resp.Records, toAttendanceResponse(&rows[i]))
	}
	resp.AttendanceRate = attendanceRate(resp.Present, resp.Late, resp.Absent)
	return resp, nil
}

// ── 辅助 ──

// resolveDate 解析日期并校验为今天或明天
func (s *attendanceService) resolveDate(now time.Time, raw string) (time.Time, bool, error) {
	date, err := time.ParseInLocation(model.DateLayout, raw, now.Location())
	if err != nil {
		return time.Time{}, false, ErrInvalidDate
	}
	today := dateOnly(now)
	switch {
	case date.Equal(today):
		return date, true, nil
	case date.Equal(today.AddDate(0, 0, 1)):
		return date, false, nil
	}
	return time.Time{}, false, ErrAttendanceDateOutOfRange
}

func registrationOpen(now time.Time) bool {
	h, m := now.Hour(), now.Minute()
	return h > registrationOpenHour || (h == registrationOpenHour && m >= registrationOpenMinute)
}

// attendanceRate (出席+迟到)/(出席+缺席+迟到)，保留一位小数
func attendanceRate(present, late, absent int) float64 {
	total := present + late + absent
	if total == 0 {
		return 0
	}
	return math.Round(float64(present+late)/float64(total)*1000) / 10
}

func (s *attendanceService) audit(ctx context.Context, event, action string, a *model.Attendance, desc string) {
	meta, _ := json.Marshal(map[string]interface{}{
		"user_id": a.UserID,
		"date":    a.AttendanceDate.Format(model.DateLayout),
	})
	modelType := "attendance"
	if err := s.repo.AuditLog.Create(ctx, &model.AuditLog{
		EventType:   event,
		ModelType:   &modelType,
		ModelID:     &a.AttendanceID,
		Action:      action,
		Description: desc,
		Metadata:    datatypes.JSON(meta),
	}); err != nil {
		s.logger.Warn("写入出勤审计日志失败", zap.Error(err))
	}
}

func toAttendanceResponse(a *model.Attendance) dto.AttendanceResponse {
	return dto.AttendanceResponse{
		ID:             a.AttendanceID,
		UserID:         a.UserID,
		Date:           a.AttendanceDate.Format(model.DateLayout),
		Status:         a.Status,
		CheckInTime:    a.CheckInTime,
		SlackInvited:   a.SlackInvited,
		SlackChannelID: a.SlackChannelID,
	}
}
