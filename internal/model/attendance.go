package model

import (
	"time"

	"gorm.io/datatypes"
)

// 出勤状态
const (
	AttendanceStatusPresent   = "present"
	AttendanceStatusAbsent    = "absent"
	AttendanceStatusCancelled = "cancelled"
	AttendanceStatusLate      = "late"
)

// Attendance 出勤表 — 对应 attendances（user_id, attendance_date 唯一）
// slack_* 字段只由频道管理任务写入
type Attendance struct {
	AttendanceID   string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_id"`
	UserID         string         `gorm:"type:uuid;not null"                             json:"user_id"`
	AttendanceDate time.Time      `gorm:"type:date;not null"                             json:"attendance_date"`
	Status         string         `gorm:"type:varchar(20);not null;default:'present'"    json:"status"`
	CheckInTime    *string        `gorm:"type:time"                                      json:"check_in_time,omitempty"`
	CheckOutTime   *string        `gorm:"type:time"                                      json:"check_out_time,omitempty"`
	StudyMinutes   int            `gorm:"not null;default:0"                             json:"study_minutes"`
	SlackChannelID *string        `gorm:"type:varchar(50)"                               json:"slack_channel_id,omitempty"`
	SlackInvited   bool           `gorm:"not null;default:false"                         json:"slack_invited"`
	SlackInvitedAt *time.Time     `json:"slack_invited_at,omitempty"`
	Notes          *string        `gorm:"type:text"                                      json:"notes,omitempty"`
	IPAddress      *string        `gorm:"type:varchar(45)"                               json:"ip_address,omitempty"`
	Metadata       datatypes.JSON `gorm:"type:jsonb"                                     json:"metadata,omitempty"`
	BaseModel

	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Attendance) TableName() string { return "attendances" }

// AttendanceInvitee 出勤记录与 Slack 身份的联表投影
type AttendanceInvitee struct {
	AttendanceID   string
	UserID         string
	UserName       string
	SlackUserID    string
	SlackChannelID *string
}
