package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"easyshifts/backend/config"
	applogger "easyshifts/backend/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "easyshifts",
	Short: "EasyShifts 排班与工时后端",
	Long: `EasyShifts 后端：会话管理、签到签退与工时表。
子命令 serve 启动 HTTP 服务，migrate 执行数据库迁移，upgrade-passwords 批量升级旧版明文密码。`,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml）")
}

// bootstrap 加载配置并初始化日志
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, logger, nil
}
