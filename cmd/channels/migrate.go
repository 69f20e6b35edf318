package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"skillhub/internal/app"
	"skillhub/pkg/database"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "数据库迁移",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "执行全部未应用的迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(app.Options{ConfigPath: *configPath, Migrate: true})
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			a.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "迁移完成")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "回滚最近一次迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(app.Options{ConfigPath: *configPath})
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			defer a.Close()

			sqlDB, err := a.DB.DB()
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			if err := database.RollbackMigration(sqlDB, a.Logger); err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "已回滚一次迁移")
			return nil
		},
	})
	return cmd
}
