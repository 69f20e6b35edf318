// Package app 组装各入口（server / channels / scheduler）共用的依赖
package app

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"skillhub/config"
	"skillhub/internal/repository"
	"skillhub/internal/service"
	"skillhub/pkg/alert"
	"skillhub/pkg/database"
	applogger "skillhub/pkg/logger"
	"skillhub/pkg/redis"
)

// Version 构建版本，发布时通过 -ldflags 注入
var Version = "dev"

// App 进程级依赖
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *gorm.DB
	Redis   *redis.Client // 可能为 nil：降级为无锁、无限流
	Rollbar *alert.Rollbar
	Repo    *repository.Repository
	Service *service.Service
}

// Options 初始化选项
type Options struct {
	ConfigPath string
	// Migrate 启动时执行数据库迁移
	Migrate bool
}

// New 依次初始化 配置 → 日志 → 数据库 → Redis → 告警 → Repository → Service
func New(opts Options) (*App, error) {
	// .env 不存在时忽略，仅用于本地开发
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("加载 .env 失败: %w", err)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	if opts.Migrate {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	// Redis 可选：连接失败时降级运行，不中断启动
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，运行锁与限流将不可用", zap.Error(err))
		rdb = nil
	}

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}

	rb := alert.NewRollbar(&cfg.Rollbar, Version)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, service.Deps{
		Gateway:  service.NewSlackGatewayFactory(logger),
		Locker:   service.NewRedisRunLocker(rdb, cfg.Scheduler.LockTTL, logger),
		Notifier: service.NewErrorNotifier(repo, rb, logger),
		Clock:    service.NewClock(loc),
	}, logger)

	return &App{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		Redis:   rdb,
		Rollbar: rb,
		Repo:    repo,
		Service: svc,
	}, nil
}

// Close 释放数据库、Redis 连接并冲刷告警与日志
func (a *App) Close() {
	if sqlDB, _ := a.DB.DB(); sqlDB != nil {
		sqlDB.Close()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	a.Rollbar.Close()
	_ = a.Logger.Sync()
}
