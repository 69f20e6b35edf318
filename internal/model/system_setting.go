package model

// 设置值类型
const (
	SettingTypeString  = "string"
	SettingTypeInteger = "integer"
	SettingTypeBoolean = "boolean"
	SettingTypeJSON    = "json"
)

// SystemSetting 系统设置表 — 对应 system_settings（category, key 唯一）
type SystemSetting struct {
	SettingID   string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"setting_id"`
	Category    string  `gorm:"type:varchar(100);not null"                     json:"category"`
	Key         string  `gorm:"type:varchar(100);not null"                     json:"key"`
	Value       *string `gorm:"type:text"                                      json:"value,omitempty"`
	Type        string  `gorm:"type:varchar(50);not null;default:'string'"     json:"type"`
	Description *string `gorm:"type:text"                                      json:"description,omitempty"`
	IsPublic    bool    `gorm:"not null;default:false"                         json:"is_public"`
	IsEditable  bool    `gorm:"not null;default:true"                          json:"is_editable"`
	UpdatedBy   *string `gorm:"type:uuid"                                      json:"updated_by,omitempty"`
	BaseModel
}

// TableName 指定表名
func (SystemSetting) TableName() string { return "system_settings" }
