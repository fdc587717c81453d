package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"easyshifts/backend/pkg/database"
)

var (
	migrateDown   int
	migrateForce  int
	migrateStatus bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "执行内嵌的数据库迁移",
	Long: `默认应用全部未执行的迁移。
--down N 回滚最近 N 个迁移；--force V 清除 dirty 标记并设置版本；--status 仅打印当前版本。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
		if err != nil {
			return fmt.Errorf("数据库连接失败: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
		}
		defer sqlDB.Close()

		switch {
		case migrateStatus:
			st, err := database.GetMigrationStatus(sqlDB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%v\n", st.Version, st.Dirty)
			return nil
		case migrateForce >= 0:
			return database.ForceMigrationVersion(sqlDB, migrateForce, logger)
		case migrateDown > 0:
			return database.RollbackMigrations(sqlDB, migrateDown, logger)
		default:
			return database.RunMigrations(sqlDB, logger)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().IntVar(&migrateDown, "down", 0, "回滚最近 N 个迁移")
	migrateCmd.Flags().IntVar(&migrateForce, "force", -1, "强制设置迁移版本（清除 dirty）")
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "打印当前迁移版本")
}
