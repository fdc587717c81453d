package dto

import "time"

// ── 工时卡模块 DTO ──

// ClockRequest 打卡请求（经理代打卡需指定 user_id）
type ClockRequest struct {
	UserID int64  `json:"user_id"`
	Action string `json:"action" binding:"required"` // clock_in | clock_out
}

// UpdateNotesRequest 备注更新请求；允许空字符串清空备注
type UpdateNotesRequest struct {
	Notes *string `json:"notes" binding:"required"`
}

// ClockPairResponse 一组签到/签退
type ClockPairResponse struct {
	In  *time.Time `json:"in"`
	Out *time.Time `json:"out,omitempty"`
}

// TimecardEntry 单个员工在班次上的工时卡
type TimecardEntry struct {
	UserID            int64               `json:"user_id"`
	WorkerName        string              `json:"worker_name"`
	Role              string              `json:"role"`
	CurrentStatus     string              `json:"current_status"`
	LastActionTime    *time.Time          `json:"last_action_time,omitempty"`
	IsAbsent          bool                `json:"is_absent"`
	AbsentMarkedBy    *int64              `json:"absent_marked_by,omitempty"`
	AbsentMarkedAt    *time.Time          `json:"absent_marked_at,omitempty"`
	Notes             string              `json:"notes"`
	ClockPairs        []ClockPairResponse `json:"clock_pairs"`
	TotalHoursWorked  float64             `json:"total_hours_worked"`
	ForcedClockOut    bool                `json:"forced_clock_out"`
	ForcedClockOutAt  *time.Time          `json:"forced_clock_out_at,omitempty"`
	TimesheetApproved bool                `json:"timesheet_approved"`
	ApprovedBy        *int64              `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time          `json:"approved_at,omitempty"`
}

// ClockResponse 打卡结果
type ClockResponse struct {
	ShiftID          int64     `json:"shift_id"`
	UserID           int64     `json:"user_id"`
	Action           string    `json:"action"`
	Timestamp        time.Time `json:"timestamp"`
	CurrentStatus    string    `json:"current_status"`
	TotalHoursWorked float64   `json:"total_hours_worked"`
}

// WorkerRef 员工简要信息
type WorkerRef struct {
	UserID     int64  `json:"user_id"`
	WorkerName string `json:"worker_name"`
}

// WorkerFailure 批量操作中单个员工的失败原因
type WorkerFailure struct {
	UserID     int64  `json:"user_id"`
	WorkerName string `json:"worker_name"`
	Kind       string `json:"kind"`
	Error      string `json:"error"`
}

// EndShiftResponse 收班结果：被强制签退的员工与待审批工时表
type EndShiftResponse struct {
	ShiftID           int64           `json:"shift_id"`
	EndedAt           time.Time       `json:"ended_at"`
	ClockedOutWorkers []WorkerRef     `json:"clocked_out_workers"`
	Failures          []WorkerFailure `json:"failures,omitempty"`
	Timesheet         []TimecardEntry `json:"timesheet"`
}
