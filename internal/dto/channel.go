package dto

// ── Slack 频道管理 DTO ──

// ChannelRunRequest 手动触发一次频道管理
// date 为空时目标日期为明天；三个开关分别强制执行创建、邀请、归档
type ChannelRunRequest struct {
	Date    string `json:"date"    binding:"omitempty,datetime=2006-01-02"`
	Create  bool   `json:"create"`
	Invite  bool   `json:"invite"`
	Cleanup bool   `json:"cleanup"`
}

// ChannelRunReport 一次运行的结果汇总
type ChannelRunReport struct {
	Date     string   `json:"date"`
	Disabled bool     `json:"disabled"`
	Locked   bool     `json:"locked"`
	Passes   []string `json:"passes"`

	ChannelsCreated int `json:"channels_created"`
	ChannelsSkipped int `json:"channels_skipped"`
	ChannelFailures int `json:"channel_failures"`
	Invited         int `json:"invited"`
	InviteFailures  int `json:"invite_failures"`
	Removed         int `json:"removed"`
	RemoveFailures  int `json:"remove_failures"`
	Archived        int `json:"archived"`
	ArchiveFailures int `json:"archive_failures"`

	Lines []string `json:"lines"`
	Error string   `json:"error,omitempty"`
}

// HasItemFailures 是否存在单项失败（运行本身已完成）
func (r *ChannelRunReport) HasItemFailures() bool {
	return r.ChannelFailures+r.InviteFailures+r.RemoveFailures+r.ArchiveFailures > 0
}

// SlackSyncReport Slack 身份同步结果
type SlackSyncReport struct {
	Disabled bool `json:"disabled"`
	Checked  int  `json:"checked"`
	Linked   int  `json:"linked"`
	NotFound int  `json:"not_found"`
	Failed   int  `json:"failed"`
}
