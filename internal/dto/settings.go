package dto

// ── 系统设置模块 DTO ──

// UpdateSettingRequest 更新单项设置请求；type 为空时沿用已存类型（新建时为 string）
type UpdateSettingRequest struct {
	Value       string  `json:"value"`
	Type        string  `json:"type"        binding:"omitempty,oneof=string integer boolean json"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

// SettingResponse 设置项响应，value 已按类型转换
type SettingResponse struct {
	Category    string      `json:"category"`
	Key         string      `json:"key"`
	Value       interface{} `json:"value"`
	Type        string      `json:"type"`
	Description *string     `json:"description,omitempty"`
	IsEditable  bool        `json:"is_editable"`
	UpdatedAt   string      `json:"updated_at"`
}
