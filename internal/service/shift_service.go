package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"skillhub/internal/dto"
	"skillhub/internal/model"
	"skillhub/internal/repository"
)

// ── 班次模块业务错误 ──

var (
	ErrShiftNotFound       = errors.New("班次不存在")
	ErrShiftDuplicate      = errors.New("该讲师当天已有班次")
	ErrShiftInPast         = errors.New("不能操作过去日期的班次")
	ErrShiftChannelCreated = errors.New("班次频道已创建，不能删除")
	ErrShiftTimeRange      = errors.New("结束时间必须晚于开始时间")
)

// 班次默认值
const (
	defaultShiftStart       = "09:00"
	defaultShiftEnd         = "18:00"
	defaultShiftMaxStudents = 20
)

// ShiftService 讲师班次接口
type ShiftService interface {
	Create(ctx context.Context, req *dto.CreateShiftRequest) (*dto.ShiftResponse, error)
	Delete(ctx context.Context, id string) error
	ListByDate(ctx context.Context, date string) ([]dto.ShiftResponse, error)
}

type shiftService struct {
	repo   *repository.Repository
	clock  Clock
	logger *zap.Logger
}

// NewShiftService 创建 ShiftService 实例
func NewShiftService(repo *repository.Repository, clock Clock, logger *zap.Logger) ShiftService {
	return &shiftService{repo: repo, clock: clock, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *shiftService) Create(ctx context.Context, req *dto.CreateShiftRequest) (*dto.ShiftResponse, error) {
	now := s.clock.Now()
	date, err := time.ParseInLocation(model.DateLayout, req.ShiftDate, now.Location())
	if err != nil {
		return nil, ErrInvalidDate
	}
	if date.Before(dateOnly(now)) {
		return nil, ErrShiftInPast
	}

	start, end := req.StartTime, req.EndTime
	if start == "" {
		start = defaultShiftStart
	}
	if end == "" {
		end = defaultShiftEnd
	}
	// HH:MM 定长，字符串比较即时间比较
	if end <= start {
		return nil, ErrShiftTimeRange
	}
	maxStudents := req.MaxStudents
	if maxStudents == 0 {
		maxStudents = defaultShiftMaxStudents
	}

	dup, err := s.repo.Shift.ExistsForTeacherOnDate(ctx, req.TeacherID, date)
	if err != nil {
		s.logger.Error("检查班次重复失败", zap.Error(err))
		return nil, err
	}
	if dup {
		return nil, ErrShiftDuplicate
	}

	shift := &model.Shift{
		TeacherID:   req.TeacherID,
		CompanyID:   req.CompanyID,
		LanguageID:  req.LanguageID,
		ShiftDate:   date,
		StartTime:   start,
		EndTime:     end,
		Status:      model.ShiftStatusScheduled,
		MaxStudents: maxStudents,
		Notes:       req.Notes,
	}
	if err := s.repo.Shift.Create(ctx, shift); err != nil {
		s.logger.Error("创建班次失败", zap.Error(err))
		return nil, err
	}

	s.audit(ctx, model.AuditEventShiftCreated, "create", shift, "班次创建")
	s.logger.Info("班次已创建",
		zap.String("shift_id", shift.ShiftID),
		zap.String("teacher_id", shift.TeacherID),
		zap.String("date", req.ShiftDate))

	resp := toShiftResponse(shift)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *shiftService) Delete(ctx context.Context, id string) error {
	shift, err := s.repo.Shift.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.Error(err))
		return err
	}

	// date 列读回为 UTC 零点，按日期字符串比较避免时区偏移
	if shift.ShiftDate.Format(model.DateLayout) < s.clock.Now().Format(model.DateLayout) {
		return ErrShiftInPast
	}
	if shift.SlackChannelCreated {
		return ErrShiftChannelCreated
	}

	if err := s.repo.Shift.Delete(ctx, id); err != nil {
		s.logger.Error("删除班次失败", zap.String("shift_id", id), zap.Error(err))
		return err
	}

	s.audit(ctx, model.AuditEventShiftDeleted, "delete", shift, "班次删除")
	s.logger.Info("班次已删除", zap.String("shift_id", id))
	return nil
}

// ────────────────────── ListByDate ──────────────────────

func (s *shiftService) ListByDate(ctx context.Context, date string) ([]dto.ShiftResponse, error) {
	d, err := time.ParseInLocation(model.DateLayout, date, s.clock.Now().Location())
	if err != nil {
		return nil, ErrInvalidDate
	}

	shifts, err := s.repo.Shift.ListByDate(ctx, d)
	if err != nil {
		s.logger.Error("查询班次列表失败", zap.Error(err))
		return nil, err
	}

	list := make([]dto.ShiftResponse, 0, len(shifts))
	for i := range shifts {
		list = append(list, toShiftResponse(&shifts[i]))
	}
	return list, nil
}

func (s *shiftService) audit(ctx context.Context, event, action string, shift *model.Shift, desc string) {
	meta, _ := json.Marshal(map[string]interface{}{
		"teacher_id": shift.TeacherID,
		"date":       shift.ShiftDate.Format(model.DateLayout),
	})
	modelType := "shift"
	if err := s.repo.AuditLog.Create(ctx, &model.AuditLog{
		EventType:   event,
		ModelType:   &modelType,
		ModelID:     &shift.ShiftID,
		Action:      action,
		Description: desc,
		Metadata:    datatypes.JSON(meta),
	}); err != nil {
		s.logger.Warn("写入班次审计日志失败", zap.Error(err))
	}
}

func toShiftResponse(shift *model.Shift) dto.ShiftResponse {
	resp := dto.ShiftResponse{
		ID:                  shift.ShiftID,
		TeacherID:           shift.TeacherID,
		CompanyID:           shift.CompanyID,
		ShiftDate:           shift.ShiftDate.Format(model.DateLayout),
		StartTime:           shift.StartTime,
		EndTime:             shift.EndTime,
		Status:              shift.Status,
		MaxStudents:         shift.MaxStudents,
		CurrentStudents:     shift.CurrentStudents,
		SlackChannelID:      shift.SlackChannelID,
		SlackChannelCreated: shift.SlackChannelCreated,
		CreatedAt:           shift.CreatedAt.Format(time.RFC3339),
	}
	if shift.Teacher != nil {
		resp.TeacherName = shift.Teacher.Name
	}
	if shift.Language != nil {
		resp.LanguageCode = shift.Language.Code
		resp.LanguageName = shift.Language.Name
	}
	return resp
}
