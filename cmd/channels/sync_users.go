package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"skillhub/internal/app"
)

func newSyncUsersCmd(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sync-users",
		Short: "按邮箱查找并保存用户的 Slack ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(app.Options{ConfigPath: *configPath})
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			defer a.Close()

			report, err := a.Service.SlackIdentity.Sync(cmd.Context(), limit)
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			if report.Disabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Slack 集成未启用，跳过")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "检查 %d 人，关联 %d 人，未找到 %d 人，失败 %d 人\n",
				report.Checked, report.Linked, report.NotFound, report.Failed)
			if report.Failed > 0 {
				return &exitError{code: exitItemFailure}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "单次最多处理的用户数（默认 500）")
	return cmd
}
