package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"skillhub/internal/model"
	"skillhub/internal/repository"
	"skillhub/pkg/alert"
	"skillhub/pkg/slack"
)

// ErrorNotifier 运维通知：未预期错误写审计日志、上报 Rollbar，并可发往 Slack 告警频道
type ErrorNotifier interface {
	Notify(ctx context.Context, title string, err error, fields map[string]interface{})
}

type errorNotifier struct {
	repo    *repository.Repository
	rollbar *alert.Rollbar
	logger  *zap.Logger
}

// NewErrorNotifier rollbar 可为 nil
func NewErrorNotifier(repo *repository.Repository, rollbar *alert.Rollbar, logger *zap.Logger) ErrorNotifier {
	return &errorNotifier{repo: repo, rollbar: rollbar, logger: logger}
}

func (n *errorNotifier) Notify(ctx context.Context, title string, err error, fields map[string]interface{}) {
	n.logger.Error(title, zap.Error(err), zap.Any("fields", fields))

	meta := map[string]interface{}{"error": err.Error()}
	for k, v := range fields {
		meta[k] = v
	}
	raw, _ := json.Marshal(meta)

	modelType := "system"
	if writeErr := n.repo.AuditLog.Create(ctx, &model.AuditLog{
		EventType:   model.AuditEventSlackError,
		ModelType:   &modelType,
		Action:      "error",
		Description: fmt.Sprintf("%s: %v", title, err),
		Metadata:    datatypes.JSON(raw),
	}); writeErr != nil {
		n.logger.Error("写入错误审计日志失败", zap.Error(writeErr))
	}

	n.rollbar.Report(title, err, fields)
}

// postAlert 向告警频道发送错误详情，失败仅记录日志
func postAlert(ctx context.Context, gw SlackGateway, channel, title string, err error, logger *zap.Logger) {
	if channel == "" || gw == nil || !gw.IsEnabled() {
		return
	}
	if postErr := gw.PostMessage(ctx, channel, ":warning: "+title, slack.Attachment{
		Color: "danger",
		Title: "错误详情",
		Text:  err.Error(),
	}); postErr != nil {
		logger.Warn("发送 Slack 告警失败", zap.String("channel", channel), zap.Error(postErr))
	}
}
