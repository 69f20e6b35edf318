package dto

// ── 出勤模块 DTO ──

// AttendanceDateRequest 登记/取消出勤请求（date 只接受今天或明天）
type AttendanceDateRequest struct {
	Date  string  `json:"date"  binding:"required,datetime=2006-01-02"`
	Notes *string `json:"notes" binding:"omitempty,max=500"`
}

// AttendanceMonthlyRequest 月度统计查询参数
type AttendanceMonthlyRequest struct {
	Month string `form:"month" binding:"omitempty,datetime=2006-01"`
}

// ── 响应 ──

// AttendanceResponse 出勤记录响应
type AttendanceResponse struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	Date           string  `json:"date"`
	Status         string  `json:"status"`
	CheckInTime    *string `json:"check_in_time,omitempty"`
	SlackInvited   bool    `json:"slack_invited"`
	SlackChannelID *string `json:"slack_channel_id,omitempty"`
}

// AttendanceMonthlyResponse 月度出勤统计
type AttendanceMonthlyResponse struct {
	Month          string               `json:"month"`
	Present        int                  `json:"present"`
	Late           int                  `json:"late"`
	Absent         int                  `json:"absent"`
	Cancelled      int                  `json:"cancelled"`
	StudyMinutes   int                  `json:"study_minutes"`
	AttendanceRate float64              `json:"attendance_rate"`
	Records        []AttendanceResponse `json:"records"`
}
