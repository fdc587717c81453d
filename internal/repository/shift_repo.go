package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"easyshifts/backend/internal/model"
)

// ShiftRepository 班次数据访问接口
type ShiftRepository interface {
	Create(ctx context.Context, shift *model.Shift) error
	GetByID(ctx context.Context, id int64) (*model.Shift, error)
	MarkEnded(ctx context.Context, id int64, endedBy int64, at time.Time) error
}

type shiftRepo struct {
	db *gorm.DB
}

func NewShiftRepo(db *gorm.DB) ShiftRepository {
	return &shiftRepo{db: db}
}

func (r *shiftRepo) Create(ctx context.Context, shift *model.Shift) error {
	return r.db.WithContext(ctx).Create(shift).Error
}

func (r *shiftRepo) GetByID(ctx context.Context, id int64) (*model.Shift, error) {
	var shift model.Shift
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", id).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *shiftRepo) MarkEnded(ctx context.Context, id int64, endedBy int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Shift{}).
		Where("shift_id = ?", id).
		Updates(map[string]interface{}{
			"ended_at": at,
			"ended_by": endedBy,
		}).Error
}
