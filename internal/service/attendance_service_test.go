package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"skillhub/internal/dto"
	"skillhub/internal/model"
)

// ── 测试辅助 ──

func setupTestAttendanceService(now time.Time) (AttendanceService, *mockDB) {
	db := newMockDB()
	repo := newMockRepository(db)
	return NewAttendanceService(repo, &fixedClock{t: now}, zap.NewNop()), db
}

var morningMarch5 = time.Date(2025, time.March, 5, 7, 55, 0, 0, time.UTC)

// ── Register 测试 ──

func TestAttendanceService_Register_Today(t *testing.T) {
	svc, db := setupTestAttendanceService(morningMarch5)

	resp, err := svc.Register(context.Background(), "stu-1", &dto.AttendanceDateRequest{Date: "2025-03-05"}, "10.0.0.1")
	if err != nil {
		t.Fatalf("Register 应成功: %v", err)
	}
	if resp.Status != model.AttendanceStatusPresent || resp.CheckInTime == nil || *resp.CheckInTime != "07:55:00" {
		t.Errorf("当日登记应记录签到时间，实际 %+v", resp)
	}
	if resp.SlackInvited {
		t.Error("新登记不应带邀请标记")
	}
	if db.auditCount(model.AuditEventAttendanceRegistered) != 1 {
		t.Error("应写入登记审计")
	}
}

func TestAttendanceService_Register_BeforeOpening(t *testing.T) {
	svc, _ := setupTestAttendanceService(time.Date(2025, time.March, 5, 7, 54, 0, 0, time.UTC))

	_, err := svc.Register(context.Background(), "stu-1", &dto.AttendanceDateRequest{Date: "2025-03-05"}, "")
	if !errors.Is(err, ErrRegistrationNotOpen) {
		t.Errorf("期望 ErrRegistrationNotOpen，实际: %v", err)
	}
}

func TestAttendanceService_Register_TomorrowAnyTime(t *testing.T) {
	svc, _ := setupTestAttendanceService(time.Date(2025, time.March, 5, 2, 0, 0, 0, time.UTC))

	resp, err := svc.Register(context.Background(), "stu-1", &dto.AttendanceDateRequest{Date: "2025-03-06"}, "")
	if err != nil {
		t.Fatalf("登记明天应不受时间限制: %v", err)
	}
	if resp.CheckInTime != nil {
		t.Error("登记明天不应记录签到时间")
	}
}

func TestAttendanceService_Register_OutOfRange(t *testing.T) {
	svc, _ := setupTestAttendanceService(morningMarch5)

	for _, date := range []string{"2025-03-04", "2025-03-07"} {
		_, err := svc.Register(context.Background(), "stu-1", &dto.AttendanceDateRequest{Date: date}, "")
		if !errors.Is(err, ErrAttendanceDateOutOfRange) {
			t.Errorf("%s 期望 ErrAttendanceDateOutOfRange，实际: %v", date, err)
		}
	}
}

func TestAttendanceService_Register_Twice(t *testing.T) {
	svc, _ := setupTestAttendanceService(morningMarch5)
	req := &dto.AttendanceDateRequest{Date: "2025-03-06"}

	if _, err := svc.Register(context.Background(), "stu-1", req, ""); err != nil {
		t.Fatalf("首次登记应成功: %v", err)
	}
	if _, err := svc.Register(context.Background(), "stu-1", req, ""); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("期望 ErrAlreadyRegistered，实际: %v", err)
	}
}

func TestAttendanceService_Register_AfterCancelKeepsInviteFlag(t *testing.T) {
	svc, db := setupTestAttendanceService(morningMarch5)
	db.attendances["att-1"] = model.Attendance{
		AttendanceID:   "att-1",
		UserID:         "stu-1",
		AttendanceDate: day(2025, time.March, 6),
		Status:         model.AttendanceStatusCancelled,
		SlackInvited:   true,
		SlackChannelID: strPtr("C1"),
	}

	resp, err := svc.Register(context.Background(), "stu-1", &dto.AttendanceDateRequest{Date: "2025-03-06"}, "")
	if err != nil {
		t.Fatalf("重新登记应成功: %v", err)
	}
	if resp.Status != model.AttendanceStatusPresent {
		t.Errorf("状态应恢复为 present，实际 %s", resp.Status)
	}
	if !db.attendances["att-1"].SlackInvited {
		t.Error("登记不应改动邀请标记")
	}
}

func TestAttendanceService_Register_TomorrowClearsStaleCheckIn(t *testing.T) {
	svc, db := setupTestAttendanceService(morningMarch5)
	db.attendances["att-1"] = model.Attendance{
		AttendanceID:   "att-1",
		UserID:         "stu-1",
		AttendanceDate: day(2025, time.March, 6),
		Status:         model.AttendanceStatusAbsent,
		CheckInTime:    strPtr("09:12:00"),
	}

	resp, err := svc.Register(context.Background(), "stu-1", &dto.AttendanceDateRequest{Date: "2025-03-06"}, "")
	if err != nil {
		t.Fatalf("重新登记应成功: %v", err)
	}
	if resp.CheckInTime != nil || db.attendances["att-1"].CheckInTime != nil {
		t.Errorf("登记明天应清空旧签到时间，实际 %v", db.attendances["att-1"].CheckInTime)
	}
}

func TestAttendanceService_Register_TodayOverwritesCheckIn(t *testing.T) {
	svc, db := setupTestAttendanceService(morningMarch5)
	db.attendances["att-1"] = model.Attendance{
		AttendanceID:   "att-1",
		UserID:         "stu-1",
		AttendanceDate: march5,
		Status:         model.AttendanceStatusCancelled,
		CheckInTime:    strPtr("07:00:00"),
	}

	if _, err := svc.Register(context.Background(), "stu-1", &dto.AttendanceDateRequest{Date: "2025-03-05"}, ""); err != nil {
		t.Fatalf("重新登记应成功: %v", err)
	}
	if got := db.attendances["att-1"].CheckInTime; got == nil || *got != "07:55:00" {
		t.Errorf("当日重新登记应写入本次签到时间，实际 %v", got)
	}
}

// ── Cancel 测试 ──

func TestAttendanceService_Cancel(t *testing.T) {
	svc, db := setupTestAttendanceService(morningMarch5)
	req := &dto.AttendanceDateRequest{Date: "2025-03-06"}

	if _, err := svc.Cancel(context.Background(), "stu-1", req); !errors.Is(err, ErrAttendanceNotFound) {
		t.Errorf("无记录时期望 ErrAttendanceNotFound，实际: %v", err)
	}

	if _, err := svc.Register(context.Background(), "stu-1", req, ""); err != nil {
		t.Fatalf("登记应成功: %v", err)
	}
	resp, err := svc.Cancel(context.Background(), "stu-1", req)
	if err != nil {
		t.Fatalf("取消应成功: %v", err)
	}
	if resp.Status != model.AttendanceStatusCancelled {
		t.Errorf("期望 cancelled，实际 %s", resp.Status)
	}
	if _, err := svc.Cancel(context.Background(), "stu-1", req); !errors.Is(err, ErrAlreadyCancelled) {
		t.Errorf("期望 ErrAlreadyCancelled，实际: %v", err)
	}
	if db.auditCount(model.AuditEventAttendanceCancelled) != 1 {
		t.Error("应写入一条取消审计")
	}
}

// ── MonthlySummary 测试 ──

func TestAttendanceService_MonthlySummary(t *testing.T) {
	svc, db := setupTestAttendanceService(morningMarch5)
	statuses := []string{
		model.AttendanceStatusPresent, model.AttendanceStatusPresent,
		model.AttendanceStatusLate, model.AttendanceStatusAbsent,
		model.AttendanceStatusAbsent, model.AttendanceStatusCancelled,
	}
	for i, st := range statuses {
		id := "att-" + string(rune('a'+i))
		db.attendances[id] = model.Attendance{
			AttendanceID:   id,
			UserID:         "stu-1",
			AttendanceDate: day(2025, time.March, i+1),
			Status:         st,
			StudyMinutes:   60,
		}
	}
	// 其他月份不计入
	db.attendances["att-feb"] = model.Attendance{
		AttendanceID: "att-feb", UserID: "stu-1", AttendanceDate: day(2025, time.February, 28), Status: model.AttendanceStatusPresent,
	}

	resp, err := svc.MonthlySummary(context.Background(), "stu-1", "2025-03")
	if err != nil {
		t.Fatalf("MonthlySummary 应成功: %v", err)
	}
	if resp.Present != 2 || resp.Late != 1 || resp.Absent != 2 || resp.Cancelled != 1 {
		t.Errorf("统计错误: %+v", resp)
	}
	// (2+1)/(2+2+1) = 60%
	if resp.AttendanceRate != 60 {
		t.Errorf("期望出勤率 60，实际 %v", resp.AttendanceRate)
	}
	if resp.StudyMinutes != 360 || len(resp.Records) != 6 {
		t.Errorf("期望 6 条记录共 360 分钟，实际 %d 条 %d 分钟", len(resp.Records), resp.StudyMinutes)
	}
}

func TestAttendanceRate(t *testing.T) {
	tests := []struct {
		present, late, absent int
		want                  float64
	}{
		{0, 0, 0, 0},
		{1, 0, 2, 33.3},
		{2, 0, 1, 66.7},
		{5, 5, 0, 100},
	}
	for _, tt := range tests {
		if got := attendanceRate(tt.present, tt.late, tt.absent); got != tt.want {
			t.Errorf("attendanceRate(%d,%d,%d) = %v，期望 %v", tt.present, tt.late, tt.absent, got, tt.want)
		}
	}
}
