package model

import (
	"time"

	"gorm.io/datatypes"
)

// 审计事件类型
const (
	AuditEventSlackChannelCreated  = "slack_channel_created"
	AuditEventSlackError           = "slack_error"
	AuditEventAttendanceRegistered = "attendance_registered"
	AuditEventAttendanceCancelled  = "attendance_cancelled"
	AuditEventShiftCreated         = "shift_created"
	AuditEventShiftDeleted         = "shift_deleted"
)

// AuditLog 审计日志表 — 对应 audit_logs（纯追加）
type AuditLog struct {
	AuditLogID  string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"audit_log_id"`
	EventType   string         `gorm:"type:varchar(50);not null"                      json:"event_type"`
	ModelType   *string        `gorm:"type:varchar(50)"                               json:"model_type,omitempty"`
	ModelID     *string        `gorm:"type:varchar(64)"                               json:"model_id,omitempty"`
	Action      string         `gorm:"type:varchar(20);not null"                      json:"action"`
	Description string         `gorm:"type:text;not null"                             json:"description"`
	Metadata    datatypes.JSON `gorm:"type:jsonb"                                     json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AuditLog) TableName() string { return "audit_logs" }
