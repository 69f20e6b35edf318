package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"skillhub/pkg/redis"
	"skillhub/pkg/slack"
)

// SlackGateway 频道管理依赖的 Slack 能力，*slack.Client 即为实现
type SlackGateway interface {
	IsEnabled() bool
	FindUserByEmail(ctx context.Context, email string) (*slack.User, error)
	CreateChannel(ctx context.Context, name, description string) (*slack.Channel, error)
	InviteToChannel(ctx context.Context, channelID string, userIDs []string) error
	RemoveFromChannel(ctx context.Context, channelID, userID string) error
	PostMessage(ctx context.Context, channelID, text string, attachments ...slack.Attachment) error
	ArchiveChannel(ctx context.Context, channelID string) error
}

// GatewayFactory 按设置快照构建网关，每次运行调用一次
type GatewayFactory func(settings *SlackSettings) SlackGateway

// NewSlackGatewayFactory 生产环境的网关工厂
func NewSlackGatewayFactory(logger *zap.Logger) GatewayFactory {
	return func(settings *SlackSettings) SlackGateway {
		return slack.NewClient(slack.Config{
			Enabled: settings.Enabled,
			Token:   settings.BotToken,
			APIURL:  settings.APIURL,
			Timeout: settings.Timeout,
		}, logger)
	}
}

// slackReason 取 Slack 错误码，非 *slack.APIError 时返回空串
func slackReason(err error) string {
	var apiErr *slack.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Reason
	}
	return ""
}

// ── 时钟 ──

// Clock 当前时间来源
type Clock interface {
	Now() time.Time
}

type locationClock struct {
	loc *time.Location
}

// NewClock 返回固定时区的系统时钟
func NewClock(loc *time.Location) Clock {
	return &locationClock{loc: loc}
}

func (c *locationClock) Now() time.Time { return time.Now().In(c.loc) }

// dateOnly 截取到当日零点（保留时区）
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ── 运行锁 ──

// ErrRunLocked 同一目标日期已有运行在进行
var ErrRunLocked = errors.New("同一日期的频道管理正在运行")

// RunLocker 按名称互斥；返回的 release 必须调用
type RunLocker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

type redisRunLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisRunLocker client 为 nil 时返回 nil（不加锁）
func NewRedisRunLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) RunLocker {
	if client == nil {
		return nil
	}
	return &redisRunLocker{client: client, ttl: ttl, logger: logger}
}

func (l *redisRunLocker) Acquire(ctx context.Context, name string) (func(), error) {
	lock, err := l.client.AcquireLock(ctx, name, l.ttl)
	if err != nil {
		if errors.Is(err, redis.ErrLockHeld) {
			return nil, ErrRunLocked
		}
		return nil, err
	}
	return func() {
		// 调用方的 ctx 可能已取消，释放使用独立超时
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			l.logger.Warn("释放运行锁失败", zap.String("name", name), zap.Error(err))
		}
	}, nil
}
