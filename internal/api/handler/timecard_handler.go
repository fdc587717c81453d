package handler

import (
	"github.com/gin-gonic/gin"

	"easyshifts/backend/internal/dto"
	"easyshifts/backend/internal/service"
	"easyshifts/backend/pkg/response"
)

// TimecardHandler 工时卡模块 HTTP 处理器
type TimecardHandler struct {
	timecardSvc service.TimecardService
}

// NewTimecardHandler 创建 TimecardHandler
func NewTimecardHandler(timecardSvc service.TimecardService) *TimecardHandler {
	return &TimecardHandler{timecardSvc: timecardSvc}
}

// GetShiftTimecard 班次工时卡
// GET /api/v1/shifts/:id/timecard
func (h *TimecardHandler) GetShiftTimecard(c *gin.Context) {
	shiftID, ok := MustParseIDParam(c, "id")
	if !ok {
		return
	}

	entries, err := h.timecardSvc.GetShiftTimecard(c.Request.Context(), shiftID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, entries)
}

// ClockInOut 签到/签退
// 普通员工只能为自己打卡；经理可通过 user_id 代打卡
// POST /api/v1/shifts/:id/clock
func (h *TimecardHandler) ClockInOut(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	shiftID, ok := MustParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ClockRequest
	if !MustBindJSON(c, &req) {
		return
	}

	target := callerID
	if req.UserID > 0 && req.UserID != callerID {
		if !IsManager(c) {
			response.Forbidden(c, "只能为自己打卡")
			return
		}
		target = req.UserID
	}

	result, err := h.timecardSvc.ClockInOut(c.Request.Context(), shiftID, target, req.Action)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}

// MarkAbsent 标记缺勤
// POST /api/v1/shifts/:id/workers/:user_id/absent
func (h *TimecardHandler) MarkAbsent(c *gin.Context) {
	managerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	shiftID, ok := MustParseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := MustParseIDParam(c, "user_id")
	if !ok {
		return
	}

	if err := h.timecardSvc.MarkAbsent(c.Request.Context(), shiftID, userID, managerID); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, nil)
}

// UpdateNotes 更新员工备注
// PUT /api/v1/shifts/:id/workers/:user_id/notes
func (h *TimecardHandler) UpdateNotes(c *gin.Context) {
	shiftID, ok := MustParseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := MustParseIDParam(c, "user_id")
	if !ok {
		return
	}

	var req dto.UpdateNotesRequest
	if !MustBindJSON(c, &req) {
		return
	}

	if err := h.timecardSvc.UpdateNotes(c.Request.Context(), shiftID, userID, *req.Notes); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, nil)
}

// EndShift 结束班次并强制签退所有在岗员工
// POST /api/v1/shifts/:id/end
func (h *TimecardHandler) EndShift(c *gin.Context) {
	managerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	shiftID, ok := MustParseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.timecardSvc.EndShiftClockOutAll(c.Request.Context(), shiftID, managerID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}

// ApproveTimesheet 审批工时表
// POST /api/v1/shifts/:id/approve
func (h *TimecardHandler) ApproveTimesheet(c *gin.Context) {
	managerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	shiftID, ok := MustParseIDParam(c, "id")
	if !ok {
		return
	}

	entries, err := h.timecardSvc.ApproveTimesheet(c.Request.Context(), shiftID, managerID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, entries)
}
