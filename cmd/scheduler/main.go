// scheduler 常驻进程，按 cron 表达式周期触发频道管理
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"skillhub/internal/app"
	"skillhub/internal/service"
)

func main() {
	a, err := app.New(app.Options{Migrate: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	cfg, logger := a.Config, a.Logger
	loc, _ := cfg.Scheduler.Location() // Validate 已校验

	cl := cronLogger{logger.Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	for _, j := range channelJobs(&cfg.Scheduler, a.Service.Channel, service.NewClock(loc), logger) {
		if _, err := c.AddJob(j.spec, j); err != nil {
			logger.Fatal("注册定时任务失败", zap.String("job", j.name), zap.String("spec", j.spec), zap.Error(err))
		}
		logger.Info("定时任务已注册", zap.String("job", j.name), zap.String("spec", j.spec))
	}

	c.Start()
	logger.Info("调度器已启动", zap.String("timezone", loc.String()), zap.String("version", app.Version))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，等待运行中的任务结束...", zap.String("signal", sig.String()))
	<-c.Stop().Done()
	logger.Info("调度器已关闭")
}

// cronLogger 将 cron 内部日志接入 zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
