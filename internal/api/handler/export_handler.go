package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"easyshifts/backend/internal/service"
	"easyshifts/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportTimesheet 导出班次工时表
// GET /api/v1/shifts/:id/timesheet.xlsx
func (h *ExportHandler) ExportTimesheet(c *gin.Context) {
	shiftID, ok := MustParseIDParam(c, "id")
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportTimesheet(c.Request.Context(), shiftID)
	if err != nil {
		response.Fail(c, err)
		return
	}

	// 设置下载响应头
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
