package model

import "time"

// Shift 班次表，对应 shifts
type Shift struct {
	ShiftID    int64      `gorm:"primaryKey;autoIncrement"   json:"shift_id"`
	JobName    string     `gorm:"type:varchar(200);not null" json:"job_name"`
	Venue      string     `gorm:"type:varchar(200)"          json:"venue,omitempty"`
	ShiftStart time.Time  `gorm:"not null"                   json:"shift_start"`
	ShiftEnd   time.Time  `gorm:"not null"                   json:"shift_end"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	EndedBy    *int64     `json:"ended_by,omitempty"`
	BaseModel

	// 关联
	Workers []ShiftWorker `gorm:"foreignKey:ShiftID" json:"workers,omitempty"`
}

func (Shift) TableName() string { return "shifts" }
