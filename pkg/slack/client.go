package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	goslack "github.com/slack-go/slack"
	"go.uber.org/zap"
)

const (
	// InviteBatchSize conversations.invite 单次最多 30 人
	InviteBatchSize = 30
	// MaxChannelNameLength 频道名长度上限
	MaxChannelNameLength = 21

	defaultTimeout = 30 * time.Second
)

var (
	// ErrDisabled 集成未启用或未配置 Token，调用方应视为"无事可做"
	ErrDisabled = errors.New("Slack 集成未启用")
	// ErrNoUsers 邀请列表为空
	ErrNoUsers = errors.New("邀请用户列表为空")
)

// APIError Slack 调用失败（接口返回 ok=false、超时或网络错误）
type APIError struct {
	Op     string
	Reason string
	Err    error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s 失败: %s", e.Op, e.Reason)
}

func (e *APIError) Unwrap() error { return e.Err }

// Config 客户端配置
type Config struct {
	Enabled bool
	Token   string
	APIURL  string
	Timeout time.Duration
}

// Channel 已创建的频道
type Channel struct {
	ID   string
	Name string
}

// User Slack 用户
type User struct {
	ID    string
	Name  string
	Email string
}

// Attachment 消息附件
type Attachment struct {
	Color string
	Title string
	Text  string
}

// Client Slack Web API 封装
// 所有失败都归一为 *APIError，不向调用方抛出传输层细节
type Client struct {
	api     *goslack.Client
	enabled bool
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient 创建客户端；未启用或 Token 为空时返回的客户端所有操作直接返回 ErrDisabled
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []goslack.Option{
		goslack.OptionHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.APIURL != "" {
		opts = append(opts, goslack.OptionAPIURL(cfg.APIURL))
	}

	return &Client{
		api:     goslack.New(cfg.Token, opts...),
		enabled: cfg.Enabled && cfg.Token != "",
		timeout: timeout,
		logger:  logger,
	}
}

// IsEnabled 功能开关打开且 Token 非空
func (c *Client) IsEnabled() bool {
	return c.enabled
}

// FindUserByEmail 按邮箱查找 Slack 用户
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u, err := c.api.GetUserByEmailContext(ctx, email)
	if err != nil {
		apiErr := wrap("users.lookupByEmail", err)
		c.logger.Warn("Slack 用户查找失败", zap.String("email", email), zap.String("reason", apiErr.Reason))
		return nil, apiErr
	}
	return &User{ID: u.ID, Name: u.Name, Email: u.Profile.Email}, nil
}

// CreateChannel 创建公开频道，设置话题并发布欢迎消息
// 话题与欢迎消息失败只记录日志，不影响频道创建结果
func (c *Client) CreateChannel(ctx context.Context, name, description string) (*Channel, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}
	channelName := NormalizeChannelName(name)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	ch, err := c.api.CreateConversationContext(callCtx, goslack.CreateConversationParams{
		ChannelName: channelName,
		IsPrivate:   false,
	})
	cancel()
	if err != nil {
		apiErr := wrap("conversations.create", err)
		c.logger.Warn("创建 Slack 频道失败", zap.String("name", channelName), zap.String("reason", apiErr.Reason))
		return nil, apiErr
	}

	if description != "" {
		if err := c.setTopic(ctx, ch.ID, description); err != nil {
			c.logger.Warn("设置频道话题失败", zap.String("channel", ch.ID), zap.Error(err))
		}
	}
	if err := c.PostMessage(ctx, ch.ID, WelcomeMessage); err != nil {
		c.logger.Warn("发布欢迎消息失败", zap.String("channel", ch.ID), zap.Error(err))
	}

	c.logger.Info("Slack 频道已创建", zap.String("channel", ch.ID), zap.String("name", ch.Name))
	return &Channel{ID: ch.ID, Name: ch.Name}, nil
}

// InviteToChannel 邀请一批用户（调用方负责按 InviteBatchSize 分批）
func (c *Client) InviteToChannel(ctx context.Context, channelID string, userIDs []string) error {
	if !c.enabled {
		return ErrDisabled
	}
	if len(userIDs) == 0 {
		return ErrNoUsers
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.api.InviteUsersToConversationContext(ctx, channelID, userIDs...); err != nil {
		apiErr := wrap("conversations.invite", err)
		c.logger.Warn("邀请用户进入频道失败",
			zap.String("channel", channelID),
			zap.Int("count", len(userIDs)),
			zap.String("reason", apiErr.Reason),
		)
		return apiErr
	}

	c.logger.Info("已邀请用户进入频道", zap.String("channel", channelID), zap.Strings("users", userIDs))
	return nil
}

// RemoveFromChannel 将用户移出频道
func (c *Client) RemoveFromChannel(ctx context.Context, channelID, userID string) error {
	if !c.enabled {
		return ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.api.KickUserFromConversationContext(ctx, channelID, userID); err != nil {
		apiErr := wrap("conversations.kick", err)
		c.logger.Warn("移出频道失败",
			zap.String("channel", channelID),
			zap.String("user", userID),
			zap.String("reason", apiErr.Reason),
		)
		return apiErr
	}

	c.logger.Info("已将用户移出频道", zap.String("channel", channelID), zap.String("user", userID))
	return nil
}

// PostMessage 向频道或用户 ID（私信）发送消息
func (c *Client) PostMessage(ctx context.Context, channelID, text string, attachments ...Attachment) error {
	if !c.enabled {
		return ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := []goslack.MsgOption{goslack.MsgOptionText(text, false)}
	if len(attachments) > 0 {
		atts := make([]goslack.Attachment, 0, len(attachments))
		for _, a := range attachments {
			atts = append(atts, goslack.Attachment{Color: a.Color, Title: a.Title, Text: a.Text})
		}
		opts = append(opts, goslack.MsgOptionAttachments(atts...))
	}

	if _, _, err := c.api.PostMessageContext(ctx, channelID, opts...); err != nil {
		apiErr := wrap("chat.postMessage", err)
		c.logger.Warn("发送 Slack 消息失败", zap.String("channel", channelID), zap.String("reason", apiErr.Reason))
		return apiErr
	}
	return nil
}

// ArchiveChannel 归档频道；频道已归档视为成功
func (c *Client) ArchiveChannel(ctx context.Context, channelID string) error {
	if !c.enabled {
		return ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.api.ArchiveConversationContext(ctx, channelID); err != nil {
		apiErr := wrap("conversations.archive", err)
		if apiErr.Reason == "already_archived" {
			return nil
		}
		c.logger.Warn("归档 Slack 频道失败", zap.String("channel", channelID), zap.String("reason", apiErr.Reason))
		return apiErr
	}
	return nil
}

func (c *Client) setTopic(ctx context.Context, channelID, topic string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.api.SetTopicOfConversationContext(ctx, channelID, topic); err != nil {
		return wrap("conversations.setTopic", err)
	}
	return nil
}

func wrap(op string, err error) *APIError {
	reason := err.Error()
	var slackErr goslack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		reason = slackErr.Err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	return &APIError{Op: op, Reason: reason, Err: err}
}

// ── 频道名 ──

var (
	invalidNameChars = regexp.MustCompile(`[^a-z0-9\-_]`)
	repeatedHyphens  = regexp.MustCompile(`-+`)
)

// NormalizeChannelName 小写化，非 [a-z0-9-_] 替换为 -，合并连续 -，去首尾 -，截断到 21 字节
func NormalizeChannelName(name string) string {
	name = strings.ToLower(name)
	name = invalidNameChars.ReplaceAllString(name, "-")
	name = repeatedHyphens.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if len(name) > MaxChannelNameLength {
		name = name[:MaxChannelNameLength]
	}
	return name
}

// WelcomeMessage 新频道欢迎消息
const WelcomeMessage = "欢迎加入本频道！\n\n" +
	"【频道使用指南】\n" +
	"• 请在这里交流与本次讲习相关的问题和资料\n" +
	"• 向讲师提问时请使用 @mention\n" +
	"• 欢迎积极开展技术讨论\n" +
	"• 请互相尊重，保持建设性的沟通\n\n" +
	"今天也请多多指教！"
