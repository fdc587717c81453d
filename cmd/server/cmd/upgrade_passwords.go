package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"easyshifts/backend/internal/repository"
	"easyshifts/backend/internal/service"
	"easyshifts/backend/pkg/database"
)

var upgradePasswordsCmd = &cobra.Command{
	Use:   "upgrade-passwords",
	Short: "将剩余的旧版明文密码一次性升级为 bcrypt 哈希",
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

		// 不涉及会话，无需连接 Redis
		repo := repository.NewRepository(db)
		authSvc := service.NewAuthService(repo, nil, service.NewPasswordHasher(&cfg.Auth), nil, logger)

		n, err := authSvc.UpgradeLegacyPasswords(cmd.Context())
		if err != nil {
			return err
		}
		logger.Info("旧版密码升级完成", zap.Int("upgraded", n))
		fmt.Fprintf(cmd.OutOrStdout(), "已升级 %d 个账号\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(upgradePasswordsCmd)
}
