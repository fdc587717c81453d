package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"easyshifts/backend/config"
	"easyshifts/backend/internal/api/handler"
	"easyshifts/backend/internal/api/middleware"
	"easyshifts/backend/internal/service"
	"easyshifts/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, sessions service.SessionManager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger, "/health"))
	r.Use(middleware.SecurityHeaders(cfg.Session.Cookie.Secure))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	loginLimit := middleware.RateLimit(rdb, cfg.RateLimit.LoginPerMinute, time.Minute, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需会话）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", loginLimit, h.Auth.Login)
			auth.POST("/federated", loginLimit, h.Auth.FederatedLogin)
		}

		// 需要会话的路由
		authorized := v1.Group("")
		authorized.Use(middleware.SessionAuth(sessions, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)
			authorized.GET("/auth/sessions", h.Auth.ListSessions)
			authorized.DELETE("/auth/sessions/:handle", h.Auth.RevokeSession)

			// 工时卡模块
			shifts := authorized.Group("/shifts/:id")
			{
				shifts.POST("/clock", h.Timecard.ClockInOut) // 本人或经理代打卡（Handler 层鉴权）
				shifts.GET("/timecard", middleware.ManagerOnly(), h.Timecard.GetShiftTimecard)
				shifts.POST("/workers/:user_id/absent", middleware.ManagerOnly(), h.Timecard.MarkAbsent)
				shifts.PUT("/workers/:user_id/notes", middleware.ManagerOnly(), h.Timecard.UpdateNotes)
				shifts.POST("/end", middleware.ManagerOnly(), h.Timecard.EndShift)
				shifts.POST("/approve", middleware.ManagerOnly(), h.Timecard.ApproveTimesheet)
				shifts.GET("/timesheet.xlsx", middleware.ManagerOnly(), h.Export.ExportTimesheet)
			}
		}
	}

	return r
}
