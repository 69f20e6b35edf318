package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Slack     SlackConfig     `mapstructure:"slack"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Rollbar   RollbarConfig   `mapstructure:"rollbar"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
	// 允许跨域的前端来源（管理后台）
	CORSAllowOrigins []string `mapstructure:"cors_allow_origins"`
	MaxBodyBytes     int64    `mapstructure:"max_body_bytes"`
	// 频道管理手动触发接口的限流（窗口内次数）
	RunRateLimit  int           `mapstructure:"run_rate_limit"`
	RunRateWindow time.Duration `mapstructure:"run_rate_window"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（运行锁 + 限流）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlackConfig Slack 连接配置
// system_settings 表中 category=slack 的记录会在运行时覆盖这里的值
type SlackConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	BotToken            string        `mapstructure:"bot_token"`
	APIURL              string        `mapstructure:"api_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ChannelPrefix       string        `mapstructure:"channel_prefix"`
	ChannelCreationTime string        `mapstructure:"channel_creation_time"` // HH:MM
	RetentionDays       int           `mapstructure:"retention_days"`
	InviteWindowStart   int           `mapstructure:"invite_window_start"` // 小时，含
	InviteWindowEnd     int           `mapstructure:"invite_window_end"`   // 小时，含
	AlertChannel        string        `mapstructure:"alert_channel"`       // 运维告警频道，空则不发
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	// 所有"当前小时"判断及"今天/明天"的换算都使用该时区
	Timezone    string        `mapstructure:"timezone"`
	ChannelSpec string        `mapstructure:"channel_spec"`
	InviteSpec  string        `mapstructure:"invite_spec"`
	CleanupSpec string        `mapstructure:"cleanup_spec"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
}

// Location 解析调度时区
func (c *SchedulerConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("无效的时区 %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// RollbarConfig 运维告警配置，Token 为空时不上报
type RollbarConfig struct {
	Token       string `mapstructure:"token"`
	Environment string `mapstructure:"environment"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.run_rate_limit", 5)
	v.SetDefault("server.run_rate_window", "1m")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "skillhub")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Tokyo")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("slack.enabled", true)
	v.SetDefault("slack.bot_token", "")
	v.SetDefault("slack.api_url", "https://slack.com/api/")
	v.SetDefault("slack.timeout", "30s")
	v.SetDefault("slack.channel_prefix", "training-")
	v.SetDefault("slack.channel_creation_time", "23:00")
	v.SetDefault("slack.retention_days", 30)
	v.SetDefault("slack.invite_window_start", 8)
	v.SetDefault("slack.invite_window_end", 22)
	v.SetDefault("slack.alert_channel", "")

	v.SetDefault("scheduler.timezone", "Asia/Tokyo")
	v.SetDefault("scheduler.channel_spec", "0,20,40 * * * *")
	v.SetDefault("scheduler.invite_spec", "30 8-22 * * *")
	v.SetDefault("scheduler.cleanup_spec", "0 3 * * *")
	v.SetDefault("scheduler.lock_ttl", "10m")

	v.SetDefault("rollbar.environment", "development")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("SKILLHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	if c.Slack.InviteWindowStart < 0 || c.Slack.InviteWindowEnd > 23 || c.Slack.InviteWindowStart > c.Slack.InviteWindowEnd {
		return fmt.Errorf("配置校验失败: slack.invite_window_start/end 必须满足 0 <= start <= end <= 23")
	}
	if c.Slack.Timeout <= 0 {
		return fmt.Errorf("配置校验失败: slack.timeout 必须大于 0")
	}
	return nil
}
