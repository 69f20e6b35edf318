package model

// Company 企业（租户）表 — 对应 companies
type Company struct {
	CompanyID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"company_id"`
	Name      string `gorm:"type:varchar(200);not null"                     json:"name"`
	IsActive  bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

func (Company) TableName() string { return "companies" }

// Language 课程语言表 — 对应 languages
type Language struct {
	LanguageID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"language_id"`
	Code       string `gorm:"type:varchar(50);not null"                      json:"code"` // 频道名后缀，如 php / go
	Name       string `gorm:"type:varchar(100);not null"                     json:"name"`
	BaseModel
}

func (Language) TableName() string { return "languages" }
