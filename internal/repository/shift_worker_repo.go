package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"easyshifts/backend/internal/model"
	pkgerrors "easyshifts/backend/pkg/errors"
)

// ErrShiftHasActiveWorkers 审批时班次仍有员工处于签到状态
var ErrShiftHasActiveWorkers = errors.New("班次仍有员工处于签到状态")

// ShiftWorkerRepository 工时卡数据访问接口
type ShiftWorkerRepository interface {
	Create(ctx context.Context, worker *model.ShiftWorker) error
	Get(ctx context.Context, shiftID, userID int64) (*model.ShiftWorker, error)
	ListByShift(ctx context.Context, shiftID int64) ([]model.ShiftWorker, error)
	// Update 以 version 做乐观锁，写入全部可变字段
	Update(ctx context.Context, worker *model.ShiftWorker) error
	// ApproveShift 在单个事务内审批班次的全部未审批工时卡，返回审批行数
	ApproveShift(ctx context.Context, shiftID, approverID int64, at time.Time) (int64, error)
}

type shiftWorkerRepo struct {
	db *gorm.DB
}

func NewShiftWorkerRepo(db *gorm.DB) ShiftWorkerRepository {
	return &shiftWorkerRepo{db: db}
}

func (r *shiftWorkerRepo) Create(ctx context.Context, worker *model.ShiftWorker) error {
	return r.db.WithContext(ctx).Create(worker).Error
}

func (r *shiftWorkerRepo) Get(ctx context.Context, shiftID, userID int64) (*model.ShiftWorker, error) {
	var worker model.ShiftWorker
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("shift_id = ? AND user_id = ?", shiftID, userID).
		First(&worker).Error
	if err != nil {
		return nil, err
	}
	return &worker, nil
}

func (r *shiftWorkerRepo) ListByShift(ctx context.Context, shiftID int64) ([]model.ShiftWorker, error) {
	var workers []model.ShiftWorker
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("shift_id = ?", shiftID).
		Order("user_id ASC").
		Find(&workers).Error
	return workers, err
}

func (r *shiftWorkerRepo) Update(ctx context.Context, worker *model.ShiftWorker) error {
	oldVersion := worker.Version
	result := r.db.WithContext(ctx).
		Model(&model.ShiftWorker{}).
		Where("shift_id = ? AND user_id = ? AND version = ?", worker.ShiftID, worker.UserID, oldVersion).
		Updates(map[string]interface{}{
			"role":                worker.Role,
			"current_status":      worker.CurrentStatus,
			"clock_in_1":          worker.ClockIn1,
			"clock_out_1":         worker.ClockOut1,
			"clock_in_2":          worker.ClockIn2,
			"clock_out_2":         worker.ClockOut2,
			"clock_in_3":          worker.ClockIn3,
			"clock_out_3":         worker.ClockOut3,
			"last_action_time":    worker.LastActionTime,
			"is_absent":           worker.IsAbsent,
			"absent_marked_by":    worker.AbsentMarkedBy,
			"absent_marked_at":    worker.AbsentMarkedAt,
			"notes":               worker.Notes,
			"total_hours_worked":  worker.TotalHoursWorked,
			"forced_clock_out":    worker.ForcedClockOut,
			"forced_clock_out_at": worker.ForcedClockOutAt,
			"timesheet_approved":  worker.TimesheetApproved,
			"approved_by":         worker.ApprovedBy,
			"approved_at":         worker.ApprovedAt,
			"version":             oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	worker.Version = oldVersion + 1
	return nil
}

func (r *shiftWorkerRepo) ApproveShift(ctx context.Context, shiftID, approverID int64, at time.Time) (int64, error) {
	var approved int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&model.ShiftWorker{}).
			Where("shift_id = ? AND current_status = ?", shiftID, model.ClockStatusClockedIn).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrShiftHasActiveWorkers
		}

		result := tx.Model(&model.ShiftWorker{}).
			Where("shift_id = ? AND timesheet_approved = ?", shiftID, false).
			Updates(map[string]interface{}{
				"timesheet_approved": true,
				"approved_by":        approverID,
				"approved_at":        at,
				"version":            gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		approved = result.RowsAffected
		return nil
	})
	return approved, err
}
