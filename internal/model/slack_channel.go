package model

import (
	"time"

	"gorm.io/datatypes"
)

// 频道类型
const (
	SlackChannelTypeDaily        = "daily"
	SlackChannelTypeGeneral      = "general"
	SlackChannelTypeAnnouncement = "announcement"
)

// SlackChannel Slack 频道记录表 — 对应 slack_channels
// channel_id 全局唯一；daily 类型每个 (channel_date, shift_id) 至多一条；只归档不删除
type SlackChannel struct {
	SlackChannelRowID string         `gorm:"column:slack_channel_row_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ChannelID         string         `gorm:"type:varchar(50);not null;uniqueIndex"                                     json:"channel_id"`
	ChannelName       string         `gorm:"type:varchar(255);not null"                                                json:"channel_name"`
	ChannelDate       time.Time      `gorm:"type:date;not null"                                                        json:"channel_date"`
	ShiftID           *string        `gorm:"type:uuid"                                                                 json:"shift_id,omitempty"`
	Type              string         `gorm:"type:varchar(20);not null;default:'daily'"                                 json:"type"`
	IsArchived        bool           `gorm:"not null;default:false"                                                    json:"is_archived"`
	CreatedAtSlack    *time.Time     `json:"created_at_slack,omitempty"`
	Members           datatypes.JSON `gorm:"type:jsonb"                                                                json:"members,omitempty"`
	BaseModel

	Shift *Shift `gorm:"foreignKey:ShiftID;references:ShiftID" json:"shift,omitempty"`
}

// TableName 指定表名
func (SlackChannel) TableName() string { return "slack_channels" }
