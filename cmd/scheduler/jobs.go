package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"skillhub/config"
	"skillhub/internal/dto"
	"skillhub/internal/model"
	"skillhub/internal/service"
)

// 单次运行的超时上限，避免卡死的外部调用阻塞后续调度
const jobTimeout = 30 * time.Minute

// channelJob 一条定时任务；request 在每次触发时生成，以便按当前时间计算日期
type channelJob struct {
	name    string
	spec    string
	request func() *dto.ChannelRunRequest

	svc    service.ChannelService
	logger *zap.Logger
}

// channelJobs 三条定时任务：
//   - channel：明天的频道，按当前时刻自动判定创建/邀请；创建时段内多次触发即为重试
//   - invite：今天的频道，补建前一晚未建成的频道，强制邀请与移出（当日登记/取消）
//   - cleanup：归档过期频道
func channelJobs(cfg *config.SchedulerConfig, svc service.ChannelService, clock service.Clock, logger *zap.Logger) []*channelJob {
	today := func() string { return clock.Now().Format(model.DateLayout) }
	return []*channelJob{
		{
			name:    "channel",
			spec:    cfg.ChannelSpec,
			request: func() *dto.ChannelRunRequest { return &dto.ChannelRunRequest{} },
			svc:     svc,
			logger:  logger,
		},
		{
			name:    "invite",
			spec:    cfg.InviteSpec,
			request: func() *dto.ChannelRunRequest { return &dto.ChannelRunRequest{Date: today(), Create: true, Invite: true} },
			svc:     svc,
			logger:  logger,
		},
		{
			name:    "cleanup",
			spec:    cfg.CleanupSpec,
			request: func() *dto.ChannelRunRequest { return &dto.ChannelRunRequest{Cleanup: true} },
			svc:     svc,
			logger:  logger,
		},
	}
}

// Run 实现 cron.Job
func (j *channelJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	req := j.request()
	log := j.logger.With(zap.String("job", j.name), zap.String("date", req.Date))

	report, err := j.svc.Run(ctx, req, func(line string) {
		log.Debug(line)
	})
	if err != nil {
		// 运维通知已由 ChannelService 发出
		log.Error("定时频道管理失败", zap.Error(err))
		return
	}

	switch {
	case report.Disabled:
		log.Debug("Slack 集成未启用，跳过")
	case report.Locked:
		log.Info("同日期任务正在其他实例运行，跳过")
	case report.HasItemFailures():
		log.Warn("定时频道管理完成，存在单项失败",
			zap.Strings("passes", report.Passes),
			zap.Int("channel_failures", report.ChannelFailures),
			zap.Int("invite_failures", report.InviteFailures),
			zap.Int("remove_failures", report.RemoveFailures),
			zap.Int("archive_failures", report.ArchiveFailures))
	default:
		log.Info("定时频道管理完成",
			zap.String("target_date", report.Date),
			zap.Strings("passes", report.Passes),
			zap.Int("created", report.ChannelsCreated),
			zap.Int("invited", report.Invited),
			zap.Int("removed", report.Removed),
			zap.Int("archived", report.Archived))
	}
}
