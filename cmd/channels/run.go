package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skillhub/internal/app"
	"skillhub/internal/dto"
	"skillhub/internal/service"
)

func newRunCmd(configPath *string) *cobra.Command {
	var req dto.ChannelRunRequest

	cmd := &cobra.Command{
		Use:   "run",
		Short: "执行一次频道管理（创建 / 邀请 / 移出 / 归档）",
		Long: `未指定 --create / --invite 时按当前小时自动判定：
  创建：当前小时 >= 频道创建时刻
  邀请与移出：当前小时位于邀请时间窗内
归档仅在 --cleanup 时执行。--date 缺省为明天。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(app.Options{ConfigPath: *configPath})
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runChannels(ctx, a.Service.Channel, a.Logger, &req, func(line string) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			})
		},
	}

	cmd.Flags().StringVar(&req.Date, "date", "", "目标日期 YYYY-MM-DD（默认明天）")
	cmd.Flags().BoolVar(&req.Create, "create", false, "强制执行频道创建")
	cmd.Flags().BoolVar(&req.Invite, "invite", false, "强制执行邀请与移出")
	cmd.Flags().BoolVar(&req.Cleanup, "cleanup", false, "执行过期频道归档")
	return cmd
}

// runChannels 执行一次运行并把结果映射为退出码
func runChannels(ctx context.Context, svc service.ChannelService, logger *zap.Logger, req *dto.ChannelRunRequest, progress service.ProgressFunc) error {
	report, err := svc.Run(ctx, req, progress)
	if err != nil {
		logger.Error("频道管理运行失败", zap.Error(err))
		return &exitError{code: exitFailure, err: err}
	}
	if report.HasItemFailures() {
		return &exitError{code: exitItemFailure}
	}
	return nil
}
