package model

// 用户角色
const (
	RoleStudent      = "student"
	RoleTeacher      = "teacher"
	RoleCompanyAdmin = "company_admin"
	RoleAdmin        = "admin"
)

// User 用户表 — 对应 users
type User struct {
	UserID      string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name        string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Email       string  `gorm:"type:varchar(255);not null"                     json:"email"`
	Role        string  `gorm:"type:varchar(20);not null;default:'student'"    json:"role"`
	CompanyID   *string `gorm:"type:uuid"                                      json:"company_id,omitempty"`
	SlackUserID *string `gorm:"type:varchar(50)"                               json:"slack_user_id,omitempty"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// HasSlackIdentity 是否已绑定 Slack 用户
func (u *User) HasSlackIdentity() bool {
	return u != nil && u.SlackUserID != nil && *u.SlackUserID != ""
}
