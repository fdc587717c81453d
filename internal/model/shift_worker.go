package model

import "time"

// 工时卡状态
const (
	ClockStatusNotStarted = "not_started"
	ClockStatusClockedIn  = "clocked_in"
	ClockStatusClockedOut = "clocked_out"
)

// MaxClockPairs 每个工时卡最多的签到/签退对数（允许中途休息）
const MaxClockPairs = 3

// ShiftWorker 班次人员分配表（工时卡行），对应 shift_workers
// total_hours_worked 为派生字段，只能由已闭合的签到/签退对重新计算
type ShiftWorker struct {
	ShiftID           int64      `gorm:"primaryKey;autoIncrement:false"                  json:"shift_id"`
	UserID            int64      `gorm:"primaryKey;autoIncrement:false"                  json:"user_id"`
	Role              string     `gorm:"type:varchar(50);not null"                       json:"role"`
	CurrentStatus     string     `gorm:"type:varchar(20);not null;default:'not_started'" json:"current_status"` // not_started | clocked_in | clocked_out
	ClockIn1          *time.Time `gorm:"column:clock_in_1"                               json:"clock_in_1,omitempty"`
	ClockOut1         *time.Time `gorm:"column:clock_out_1"                              json:"clock_out_1,omitempty"`
	ClockIn2          *time.Time `gorm:"column:clock_in_2"                               json:"clock_in_2,omitempty"`
	ClockOut2         *time.Time `gorm:"column:clock_out_2"                              json:"clock_out_2,omitempty"`
	ClockIn3          *time.Time `gorm:"column:clock_in_3"                               json:"clock_in_3,omitempty"`
	ClockOut3         *time.Time `gorm:"column:clock_out_3"                              json:"clock_out_3,omitempty"`
	LastActionTime    *time.Time `json:"last_action_time,omitempty"`
	IsAbsent          bool       `gorm:"not null;default:false"                          json:"is_absent"`
	AbsentMarkedBy    *int64     `json:"absent_marked_by,omitempty"`
	AbsentMarkedAt    *time.Time `json:"absent_marked_at,omitempty"`
	Notes             string     `gorm:"type:varchar(1000);not null;default:''"          json:"notes"`
	TotalHoursWorked  float64    `gorm:"not null;default:0"                              json:"total_hours_worked"`
	ForcedClockOut    bool       `gorm:"not null;default:false"                          json:"forced_clock_out"` // 曾被收班流程强制签退，写入后不清除
	ForcedClockOutAt  *time.Time `json:"forced_clock_out_at,omitempty"`
	TimesheetApproved bool       `gorm:"not null;default:false"                          json:"timesheet_approved"`
	ApprovedBy        *int64     `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	VersionedModel

	// 关联
	User  *User  `gorm:"foreignKey:UserID;references:UserID"   json:"user,omitempty"`
	Shift *Shift `gorm:"foreignKey:ShiftID;references:ShiftID" json:"shift,omitempty"`
}

func (ShiftWorker) TableName() string { return "shift_workers" }

// ClockPair 一组签到/签退时间
type ClockPair struct {
	In  *time.Time `json:"in,omitempty"`
	Out *time.Time `json:"out,omitempty"`
}

// Closed 签到与签退均已记录
func (p ClockPair) Closed() bool { return p.In != nil && p.Out != nil }

// Open 已签到尚未签退
func (p ClockPair) Open() bool { return p.In != nil && p.Out == nil }

// Pairs 按顺序返回三组签到/签退
func (w *ShiftWorker) Pairs() [MaxClockPairs]ClockPair {
	return [MaxClockPairs]ClockPair{
		{In: w.ClockIn1, Out: w.ClockOut1},
		{In: w.ClockIn2, Out: w.ClockOut2},
		{In: w.ClockIn3, Out: w.ClockOut3},
	}
}

// SetClockIn 写入第 i 组（0 起）的签到时间
func (w *ShiftWorker) SetClockIn(i int, t time.Time) {
	switch i {
	case 0:
		w.ClockIn1 = &t
	case 1:
		w.ClockIn2 = &t
	case 2:
		w.ClockIn3 = &t
	}
}

// SetClockOut 写入第 i 组（0 起）的签退时间
func (w *ShiftWorker) SetClockOut(i int, t time.Time) {
	switch i {
	case 0:
		w.ClockOut1 = &t
	case 1:
		w.ClockOut2 = &t
	case 2:
		w.ClockOut3 = &t
	}
}
