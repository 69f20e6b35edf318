package dto

// ── 讲师班次模块 DTO ──

// CreateShiftRequest 创建班次请求
type CreateShiftRequest struct {
	TeacherID   string  `json:"teacher_id"   binding:"required,uuid"`
	CompanyID   *string `json:"company_id"   binding:"omitempty,uuid"`
	LanguageID  *string `json:"language_id"  binding:"omitempty,uuid"`
	ShiftDate   string  `json:"shift_date"   binding:"required,datetime=2006-01-02"`
	StartTime   string  `json:"start_time"   binding:"omitempty,datetime=15:04"`
	EndTime     string  `json:"end_time"     binding:"omitempty,datetime=15:04"`
	MaxStudents int     `json:"max_students" binding:"omitempty,min=1,max=200"`
	Notes       *string `json:"notes"        binding:"omitempty,max=500"`
}

// ShiftListRequest 按日期查询班次
type ShiftListRequest struct {
	Date string `form:"date" binding:"required,datetime=2006-01-02"`
}

// ── 响应 ──

// ShiftResponse 班次响应
type ShiftResponse struct {
	ID                  string  `json:"id"`
	TeacherID           string  `json:"teacher_id"`
	TeacherName         string  `json:"teacher_name,omitempty"`
	CompanyID           *string `json:"company_id,omitempty"`
	LanguageCode        string  `json:"language_code,omitempty"`
	LanguageName        string  `json:"language_name,omitempty"`
	ShiftDate           string  `json:"shift_date"`
	StartTime           string  `json:"start_time"`
	EndTime             string  `json:"end_time"`
	Status              string  `json:"status"`
	MaxStudents         int     `json:"max_students"`
	CurrentStudents     int     `json:"current_students"`
	SlackChannelID      *string `json:"slack_channel_id,omitempty"`
	SlackChannelCreated bool    `json:"slack_channel_created"`
	CreatedAt           string  `json:"created_at"`
}
