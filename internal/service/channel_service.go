package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"skillhub/internal/dto"
	"skillhub/internal/model"
	"skillhub/internal/repository"
	pkgerrors "skillhub/pkg/errors"
	"skillhub/pkg/slack"
)

// ── 频道管理业务错误 ──

var (
	ErrInvalidRunDate = errors.New("日期格式无效，应为 YYYY-MM-DD")
)

// 各阶段名称（写入运行报告）
const (
	PassCreate  = "create"
	PassInvite  = "invite"
	PassRemove  = "remove"
	PassCleanup = "cleanup"
)

// ProgressFunc 逐行接收运行进度，可为 nil
type ProgressFunc func(line string)

// ChannelService 讲习频道生命周期管理
type ChannelService interface {
	// Run 执行一次频道管理。返回的 error 只表示未预期失败；
	// 单个班次/成员的失败记录在报告中
	Run(ctx context.Context, req *dto.ChannelRunRequest, progress ProgressFunc) (*dto.ChannelRunReport, error)
}

type channelService struct {
	repo       *repository.Repository
	settings   SettingsService
	newGateway GatewayFactory
	locker     RunLocker
	notifier   ErrorNotifier
	clock      Clock
	logger     *zap.Logger
}

// NewChannelService locker 为 nil 时不加锁
func NewChannelService(
	repo *repository.Repository,
	settings SettingsService,
	newGateway GatewayFactory,
	locker RunLocker,
	notifier ErrorNotifier,
	clock Clock,
	logger *zap.Logger,
) ChannelService {
	return &channelService{
		repo:       repo,
		settings:   settings,
		newGateway: newGateway,
		locker:     locker,
		notifier:   notifier,
		clock:      clock,
		logger:     logger,
	}
}

// runState 单次运行的上下文
type runState struct {
	gw       SlackGateway
	settings *SlackSettings
	date     time.Time
	report   *dto.ChannelRunReport
	progress ProgressFunc
}

func (st *runState) printf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	st.report.Lines = append(st.report.Lines, line)
	if st.progress != nil {
		st.progress(line)
	}
}

// ────────────────────── Run ──────────────────────

func (s *channelService) Run(ctx context.Context, req *dto.ChannelRunRequest, progress ProgressFunc) (report *dto.ChannelRunReport, err error) {
	report = &dto.ChannelRunReport{Passes: []string{}, Lines: []string{}}

	settings, err := s.settings.LoadSlackSettings(ctx)
	if err != nil {
		s.notifier.Notify(ctx, "频道管理：读取设置失败", err, nil)
		report.Error = err.Error()
		return report, err
	}

	now := s.clock.Now().In(settings.Location)
	date := dateOnly(now).AddDate(0, 0, 1)
	if req.Date != "" {
		d, parseErr := time.ParseInLocation(model.DateLayout, req.Date, settings.Location)
		if parseErr != nil {
			return report, ErrInvalidRunDate
		}
		date = d
	}
	report.Date = date.Format(model.DateLayout)

	st := &runState{
		gw:       s.newGateway(settings),
		settings: settings,
		date:     date,
		report:   report,
		progress: progress,
	}

	if !st.gw.IsEnabled() {
		report.Disabled = true
		st.printf("Slack 集成未启用，跳过")
		return report, nil
	}

	if s.locker != nil {
		release, lockErr := s.locker.Acquire(ctx, "slack-channels:"+report.Date)
		switch {
		case errors.Is(lockErr, ErrRunLocked):
			report.Locked = true
			st.printf("%s 的频道管理正在其他实例运行，跳过", report.Date)
			return report, nil
		case lockErr != nil:
			s.logger.Warn("获取运行锁失败，继续无锁执行", zap.Error(lockErr))
		default:
			defer release()
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = multierr.Append(err, fmt.Errorf("频道管理 panic: %v", r))
		}
		if err != nil {
			report.Error = err.Error()
			fields := map[string]interface{}{"date": report.Date, "passes": report.Passes}
			s.notifier.Notify(ctx, "频道管理运行失败", err, fields)
			postAlert(ctx, st.gw, settings.AlertChannel, "频道管理运行失败 ("+report.Date+")", err, s.logger)
		}
	}()

	hour := now.Hour()
	st.printf("开始频道管理：目标日期 %s，当前时间 %s", report.Date, now.Format("2006-01-02 15:04"))

	if req.Create || hour >= settings.CreationHour {
		report.Passes = append(report.Passes, PassCreate)
		err = multierr.Append(err, s.createChannels(ctx, st))
	}
	if req.Invite || settings.InInviteWindow(hour) {
		report.Passes = append(report.Passes, PassInvite)
		err = multierr.Append(err, s.inviteNewAttendees(ctx, st))

		report.Passes = append(report.Passes, PassRemove)
		err = multierr.Append(err, s.removeCancelled(ctx, st))
	}
	if req.Cleanup {
		report.Passes = append(report.Passes, PassCleanup)
		err = multierr.Append(err, s.archiveExpired(ctx, st, now))
	}

	st.printf("频道管理完成：创建 %d，邀请 %d，移除 %d，归档 %d",
		report.ChannelsCreated, report.Invited, report.Removed, report.Archived)
	return report, err
}

// ────────────────────── 阶段 A：创建频道 ──────────────────────

// shiftOutcome 单个班次的处理结果
type shiftOutcome struct {
	created   bool
	skipped   bool
	channelID string
	invited   int
	failed    int
}

func (s *channelService) createChannels(ctx context.Context, st *runState) error {
	shifts, err := s.repo.Shift.ListPendingChannel(ctx, st.date)
	if err != nil {
		return fmt.Errorf("查询待建频道班次失败: %w", err)
	}
	if len(shifts) == 0 {
		st.printf("%s 没有需要创建频道的班次", st.date.Format(model.DateLayout))
		return nil
	}

	for i := range shifts {
		shift := &shifts[i]
		out, err := s.provisionShift(ctx, st, shift)
		switch {
		case err != nil:
			st.report.ChannelFailures++
			st.printf("班次 %s 频道创建失败: %v", shift.ShiftID, err)
			s.logger.Error("班次频道创建失败", zap.String("shift_id", shift.ShiftID), zap.Error(err))
		case out.skipped:
			st.report.ChannelsSkipped++
			st.printf("班次 %s 已有当日频道，跳过", shift.ShiftID)
		default:
			st.report.ChannelsCreated++
			st.report.Invited += out.invited
			st.report.InviteFailures += out.failed
			st.printf("班次 %s 频道已创建 (%s)，邀请 %d 人", shift.ShiftID, out.channelID, out.invited)
		}
	}
	return nil
}

// provisionShift 在独立事务中为单个班次建频道；任何一步失败整体回滚
func (s *channelService) provisionShift(ctx context.Context, st *runState, shift *model.Shift) (*shiftOutcome, error) {
	exists, err := s.repo.SlackChannel.ExistsDailyForShift(ctx, shift.ShiftID, st.date)
	if err != nil {
		return nil, err
	}
	if exists {
		s.logger.Warn("班次已有当日频道", zap.String("shift_id", shift.ShiftID))
		return &shiftOutcome{skipped: true}, nil
	}

	name := channelName(st.settings.ChannelPrefix, st.date, shift)
	out := &shiftOutcome{}

	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		ch, err := st.gw.CreateChannel(ctx, name, channelTopic(st.date, shift))
		if err != nil {
			return err
		}
		out.channelID = ch.ID

		now := s.clock.Now()
		shiftID := shift.ShiftID
		row := &model.SlackChannel{
			ChannelID:      ch.ID,
			ChannelName:    ch.Name,
			ChannelDate:    st.date,
			ShiftID:        &shiftID,
			Type:           model.SlackChannelTypeDaily,
			CreatedAtSlack: &now,
			Members:        datatypes.JSON("[]"),
		}
		if err := tx.SlackChannel.Create(ctx, row); err != nil {
			return err
		}
		if err := tx.Shift.MarkChannelCreated(ctx, shift.ShiftID, ch.ID); err != nil {
			if errors.Is(err, pkgerrors.ErrChannelAlreadyCreated) {
				s.logger.Warn("班次频道已由其他运行创建，回滚", zap.String("shift_id", shift.ShiftID))
			}
			return err
		}

		if shift.Teacher != nil && shift.Teacher.HasSlackIdentity() {
			if err := st.gw.InviteToChannel(ctx, ch.ID, []string{*shift.Teacher.SlackUserID}); err != nil && !isAlreadyInChannel(err) {
				s.logger.Warn("邀请讲师失败", zap.String("shift_id", shift.ShiftID), zap.Error(err))
			}
		}

		invited, failed, err := s.inviteAttendees(ctx, st, tx, ch.ID, shift.CompanyID)
		if err != nil {
			return err
		}
		out.invited, out.failed = invited, failed

		return s.writeChannelAudit(ctx, tx, shift, ch, invited)
	})
	if err != nil {
		return nil, err
	}
	out.created = true
	return out, nil
}

func (s *channelService) writeChannelAudit(ctx context.Context, tx *repository.Repository, shift *model.Shift, ch *slack.Channel, attendees int) error {
	meta, _ := json.Marshal(map[string]interface{}{
		"channel_id":     ch.ID,
		"channel_name":   ch.Name,
		"shift_id":       shift.ShiftID,
		"attendee_count": attendees,
	})
	modelType := "shift"
	shiftID := shift.ShiftID
	return tx.AuditLog.Create(ctx, &model.AuditLog{
		EventType:   model.AuditEventSlackChannelCreated,
		ModelType:   &modelType,
		ModelID:     &shiftID,
		Action:      "create",
		Description: fmt.Sprintf("Slack 频道 %s 已创建", ch.Name),
		Metadata:    datatypes.JSON(meta),
	})
}

// channelName 频道名：前缀 + YYYYMMDD + 语言代码（无语言为 general），由网关再做规范化
func channelName(prefix string, date time.Time, shift *model.Shift) string {
	code := "general"
	if shift.Language != nil && shift.Language.Code != "" {
		code = shift.Language.Code
	}
	return fmt.Sprintf("%s%s-%s", prefix, date.Format("20060102"), code)
}

func channelTopic(date time.Time, shift *model.Shift) string {
	lang := "全般"
	if shift.Language != nil && shift.Language.Name != "" {
		lang = shift.Language.Name
	}
	teacher := ""
	if shift.Teacher != nil {
		teacher = shift.Teacher.Name
	}
	return fmt.Sprintf("%s %s讲习 (讲师: %s)", date.Format("2006年01月02日"), lang, teacher)
}

// ────────────────────── 阶段 B：邀请新出勤者 ──────────────────────

func (s *channelService) inviteNewAttendees(ctx context.Context, st *runState) error {
	channels, err := s.repo.SlackChannel.ListActiveDaily(ctx, st.date)
	if err != nil {
		return fmt.Errorf("查询当日频道失败: %w", err)
	}
	if len(channels) == 0 {
		st.printf("%s 没有可邀请的频道", st.date.Format(model.DateLayout))
		return nil
	}

	var errs error
	for _, ch := range channels {
		var companyID *string
		if ch.Shift != nil {
			companyID = ch.Shift.CompanyID
		}
		invited, failed, err := s.inviteAttendees(ctx, st, s.repo, ch.ChannelID, companyID)
		st.report.Invited += invited
		st.report.InviteFailures += failed
		errs = multierr.Append(errs, err)
		if invited > 0 || failed > 0 {
			st.printf("频道 %s：邀请 %d 人，失败 %d 人", ch.ChannelName, invited, failed)
		}
	}
	return errs
}

// inviteAttendees 选取未邀请的出勤者，每 30 人一批邀请；仅成功批次落库
func (s *channelService) inviteAttendees(ctx context.Context, st *runState, repo *repository.Repository, channelID string, companyID *string) (invited, failed int, err error) {
	rows, err := repo.Attendance.ListPendingInvites(ctx, st.date, companyID)
	if err != nil {
		return 0, 0, fmt.Errorf("查询待邀请出勤者失败: %w", err)
	}

	for _, batch := range chunkInvitees(rows, slack.InviteBatchSize) {
		userIDs := make([]string, 0, len(batch))
		attendanceIDs := make([]string, 0, len(batch))
		for _, r := range batch {
			userIDs = append(userIDs, r.SlackUserID)
			attendanceIDs = append(attendanceIDs, r.AttendanceID)
		}

		if inviteErr := st.gw.InviteToChannel(ctx, channelID, userIDs); inviteErr != nil && !isAlreadyInChannel(inviteErr) {
			failed += len(batch)
			s.logger.Warn("批量邀请失败",
				zap.String("channel_id", channelID), zap.Int("size", len(batch)), zap.Error(inviteErr))
			continue
		}

		n, markErr := repo.Attendance.MarkInvited(ctx, attendanceIDs, channelID, s.clock.Now())
		if markErr != nil {
			err = multierr.Append(err, fmt.Errorf("更新邀请状态失败: %w", markErr))
			failed += len(batch)
			continue
		}
		if int(n) < len(batch) {
			// 其他执行已写入，或行已被删除
			s.logger.Warn("邀请状态更新行数不一致",
				zap.String("channel_id", channelID), zap.Int("size", len(batch)), zap.Int64("updated", n))
		}
		invited += int(n)
	}
	return invited, failed, err
}

func chunkInvitees(rows []model.AttendanceInvitee, size int) [][]model.AttendanceInvitee {
	var chunks [][]model.AttendanceInvitee
	for size < len(rows) {
		rows, chunks = rows[size:], append(chunks, rows[:size:size])
	}
	if len(rows) > 0 {
		chunks = append(chunks, rows)
	}
	return chunks
}

// isAlreadyInChannel 成员已在频道内，视同邀请成功
func isAlreadyInChannel(err error) bool {
	return slackReason(err) == "already_in_channel"
}

// ────────────────────── 阶段 C：移除取消者 ──────────────────────

func (s *channelService) removeCancelled(ctx context.Context, st *runState) error {
	rows, err := s.repo.Attendance.ListPendingRemovals(ctx, st.date)
	if err != nil {
		return fmt.Errorf("查询待移除出勤者失败: %w", err)
	}

	var errs error
	for _, r := range rows {
		if r.SlackChannelID == nil {
			continue
		}
		if kickErr := st.gw.RemoveFromChannel(ctx, *r.SlackChannelID, r.SlackUserID); kickErr != nil && slackReason(kickErr) != "not_in_channel" {
			st.report.RemoveFailures++
			s.logger.Warn("移出频道失败",
				zap.String("attendance_id", r.AttendanceID), zap.String("channel_id", *r.SlackChannelID), zap.Error(kickErr))
			continue
		}
		n, markErr := s.repo.Attendance.MarkRemoved(ctx, r.AttendanceID)
		if markErr != nil {
			st.report.RemoveFailures++
			errs = multierr.Append(errs, fmt.Errorf("更新移除状态失败: %w", markErr))
			continue
		}
		if n == 0 {
			s.logger.Warn("移除状态已被其他执行复位", zap.String("attendance_id", r.AttendanceID))
			continue
		}
		st.report.Removed++
		st.printf("已将 %s 移出频道", r.UserName)
	}
	return errs
}

// ────────────────────── 阶段 D：归档过期频道 ──────────────────────

func (s *channelService) archiveExpired(ctx context.Context, st *runState, now time.Time) error {
	threshold := dateOnly(now).AddDate(0, 0, -st.settings.RetentionDays)
	channels, err := s.repo.SlackChannel.ListExpired(ctx, threshold)
	if err != nil {
		return fmt.Errorf("查询过期频道失败: %w", err)
	}

	var errs error
	for _, ch := range channels {
		// 外部归档尽力而为，本地标记不受影响
		if archiveErr := st.gw.ArchiveChannel(ctx, ch.ChannelID); archiveErr != nil {
			s.logger.Warn("Slack 侧归档失败", zap.String("channel_id", ch.ChannelID), zap.Error(archiveErr))
		}
		if markErr := s.repo.SlackChannel.MarkArchived(ctx, ch.SlackChannelRowID); markErr != nil {
			st.report.ArchiveFailures++
			errs = multierr.Append(errs, fmt.Errorf("标记频道 %s 归档失败: %w", ch.ChannelID, markErr))
			continue
		}
		st.report.Archived++
	}
	if len(channels) > 0 {
		st.printf("已归档 %d 个过期频道（%s 之前）", st.report.Archived, threshold.Format(model.DateLayout))
	}
	return errs
}
