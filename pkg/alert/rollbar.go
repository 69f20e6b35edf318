package alert

import (
	"github.com/rollbar/rollbar-go"

	"skillhub/config"
)

// Rollbar 运维告警上报；Token 为空时所有调用为空操作
type Rollbar struct {
	enabled bool
}

// NewRollbar 初始化全局 rollbar 客户端
func NewRollbar(cfg *config.RollbarConfig, codeVersion string) *Rollbar {
	if cfg.Token == "" {
		rollbar.SetEnabled(false)
		return &Rollbar{enabled: false}
	}
	rollbar.SetToken(cfg.Token)
	rollbar.SetEnvironment(cfg.Environment)
	rollbar.SetCodeVersion(codeVersion)
	rollbar.SetEnabled(true)
	return &Rollbar{enabled: true}
}

// Enabled 是否会真正上报
func (r *Rollbar) Enabled() bool {
	return r != nil && r.enabled
}

// Report 以 error 级别上报一条告警，fields 作为附加数据
func (r *Rollbar) Report(title string, err error, fields map[string]interface{}) {
	if !r.Enabled() {
		return
	}
	if err != nil {
		rollbar.Error(err, title, fields)
		return
	}
	rollbar.Error(title, fields)
}

// Close 等待队列中的告警发送完毕
func (r *Rollbar) Close() {
	if !r.Enabled() {
		return
	}
	rollbar.Close()
}
