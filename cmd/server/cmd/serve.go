package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"easyshifts/backend/internal/api/handler"
	"easyshifts/backend/internal/api/router"
	"easyshifts/backend/internal/repository"
	"easyshifts/backend/internal/service"
	"easyshifts/backend/pkg/database"
	"easyshifts/backend/pkg/jwt"
	"easyshifts/backend/pkg/redis"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP API 服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置与日志
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		logger.Info("应用启动中...",
			zap.Int("port", cfg.Server.Port),
			zap.String("log_level", cfg.Log.Level),
		)

		// 2. 连接数据库
		db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
		if err != nil {
			return fmt.Errorf("数据库连接失败: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
		}
		defer sqlDB.Close()

		if !skipMigrate {
			if err := database.RunMigrations(sqlDB, logger); err != nil {
				return fmt.Errorf("数据库迁移失败: %w", err)
			}
		}

		// 3. 连接 Redis（会话存储，必需）
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer rdb.Close()

		// 4. 联合登录校验器（未配置时为 nil，联合登录关闭）
		verifier, err := jwt.NewVerifier(&cfg.Auth.Federated)
		if err != nil {
			return err
		}
		var identity service.IdentityVerifier
		if verifier != nil {
			identity = verifier
		} else {
			logger.Info("未配置身份提供方，联合登录已关闭")
		}

		// 5. 依赖注入: Repository → Service → Handler
		repo := repository.NewRepository(db)
		svc := service.NewService(cfg, repo, rdb, identity, logger)
		h := handler.NewHandler(svc, cfg)

		// 6. 初始化路由
		engine := router.Setup(cfg, h, svc.Session, rdb, logger)

		// 7. 启动 HTTP 服务器（优雅关闭）
		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      engine,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		// 8. 监听系统信号，优雅关闭
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
		case err := <-errCh:
			return fmt.Errorf("HTTP 服务器异常: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("服务器关闭异常", zap.Error(err))
		}

		logger.Info("服务器已关闭")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "启动时跳过数据库迁移")
}
