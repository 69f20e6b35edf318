package model

import (
	"time"

	"gorm.io/datatypes"
)

// 班次状态（scheduled → confirmed/cancelled → completed，由外部驱动）
const (
	ShiftStatusScheduled = "scheduled"
	ShiftStatusConfirmed = "confirmed"
	ShiftStatusCancelled = "cancelled"
	ShiftStatusCompleted = "completed"
)

// Shift 讲师班次表 — 对应 shifts
// 同一讲师同一天最多一个班次（teacher_id, shift_date 唯一）
type Shift struct {
	ShiftID             string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shift_id"`
	TeacherID           string         `gorm:"type:uuid;not null"                             json:"teacher_id"`
	CompanyID           *string        `gorm:"type:uuid"                                      json:"company_id,omitempty"`
	LanguageID          *string        `gorm:"type:uuid"                                      json:"language_id,omitempty"`
	ShiftDate           time.Time      `gorm:"type:date;not null"                             json:"shift_date"`
	StartTime           string         `gorm:"type:time;not null;default:'09:00'"             json:"start_time"`
	EndTime             string         `gorm:"type:time;not null;default:'18:00'"             json:"end_time"`
	Status              string         `gorm:"type:varchar(20);not null;default:'scheduled'"  json:"status"`
	SlackChannelID      *string        `gorm:"type:varchar(50)"                               json:"slack_channel_id,omitempty"`
	SlackChannelCreated bool           `gorm:"not null;default:false"                         json:"slack_channel_created"`
	MaxStudents         int            `gorm:"not null;default:20"                            json:"max_students"`
	CurrentStudents     int            `gorm:"not null;default:0"                             json:"current_students"`
	Notes               *string        `gorm:"type:text"                                      json:"notes,omitempty"`
	Metadata            datatypes.JSON `gorm:"type:jsonb"                                     json:"metadata,omitempty"`
	BaseModel

	// 关联（频道创建时通过 Preload 一次性取出，不做逐行懒加载）
	Teacher  *User     `gorm:"foreignKey:TeacherID;references:UserID"         json:"teacher,omitempty"`
	Company  *Company  `gorm:"foreignKey:CompanyID;references:CompanyID"      json:"company,omitempty"`
	Language *Language `gorm:"foreignKey:LanguageID;references:LanguageID"    json:"language,omitempty"`
}

// TableName 指定表名
func (Shift) TableName() string { return "shifts" }

// IsAvailable 是否仍有名额
func (s *Shift) IsAvailable() bool {
	return s.CurrentStudents < s.MaxStudents
}
