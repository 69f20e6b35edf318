package errors

import "errors"

// ErrChannelAlreadyCreated 条件更新未命中：该班次的频道已由其他执行创建
var ErrChannelAlreadyCreated = errors.New("该班次的 Slack 频道已创建")
