package model

import "time"

// BaseModel 创建与更新时间，由 GORM 自动维护
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// VersionedModel 乐观锁版本号；写入时以 WHERE version = 旧值 判定并发冲突
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}
