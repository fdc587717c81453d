package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"easyshifts/backend/internal/model"
	"easyshifts/backend/internal/repository"
	pkgerrors "easyshifts/backend/pkg/errors"
)

// 读取返回副本、写入校验 version，行为与数据库一致

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu         sync.Mutex
	users      map[int64]*model.User
	nextID     int64
	getErr     error // 注入查询错误
	upgradeErr error // 注入升级写入错误
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*model.User), nextID: 1}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.UserID == 0 {
		user.UserID = m.nextID
		m.nextID++
	}
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) find(match func(u *model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.UserID == id })
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == username })
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *mockUserRepo) UpgradeLegacyPassword(_ context.Context, userID int64, legacy, hashed string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upgradeErr != nil {
		return false, m.upgradeErr
	}
	u, ok := m.users[userID]
	if !ok || u.Password != legacy {
		return false, nil
	}
	u.Password = hashed
	u.Version++
	return true, nil
}

func (m *mockUserRepo) SetPassword(_ context.Context, user *model.User, hashed string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[user.UserID]
	if !ok || u.Version != user.Version {
		return pkgerrors.ErrOptimisticLock
	}
	u.Password = hashed
	u.Version++
	user.Password = hashed
	user.Version = u.Version
	return nil
}

func (m *mockUserRepo) ListWithLegacyPassword(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.User
	for _, u := range m.users {
		if !model.IsPasswordHash(u.Password) {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (m *mockUserRepo) password(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].Password
}

// ── Mock ShiftRepository ──

type mockShiftRepo struct {
	mu     sync.Mutex
	shifts map[int64]*model.Shift
	getErr error
}

func newMockShiftRepo() *mockShiftRepo {
	return &mockShiftRepo{shifts: make(map[int64]*model.Shift)}
}

func (m *mockShiftRepo) Create(_ context.Context, shift *model.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if shift.ShiftID == 0 {
		shift.ShiftID = int64(len(m.shifts) + 1)
	}
	cp := *shift
	m.shifts[shift.ShiftID] = &cp
	return nil
}

func (m *mockShiftRepo) GetByID(_ context.Context, id int64) (*model.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.shifts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockShiftRepo) MarkEnded(_ context.Context, id int64, endedBy int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.EndedAt = &at
	s.EndedBy = &endedBy
	return nil
}

// ── Mock ShiftWorkerRepository ──

type workerKey struct{ shiftID, userID int64 }

type mockShiftWorkerRepo struct {
	mu        sync.Mutex
	workers   map[workerKey]*model.ShiftWorker
	users     *mockUserRepo
	updateErr map[int64]error // 按 user_id 注入写入错误
	listErr   error
	beforeUpd func(w *model.ShiftWorker) // 写入前回调，用于模拟并发修改
}

func newMockShiftWorkerRepo(users *mockUserRepo) *mockShiftWorkerRepo {
	return &mockShiftWorkerRepo{
		workers:   make(map[workerKey]*model.ShiftWorker),
		users:     users,
		updateErr: make(map[int64]error),
	}
}

func (m *mockShiftWorkerRepo) Create(_ context.Context, worker *model.ShiftWorker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if worker.CurrentStatus == "" {
		worker.CurrentStatus = model.ClockStatusNotStarted
	}
	worker.Version = 1
	cp := *worker
	cp.User = nil
	m.workers[workerKey{worker.ShiftID, worker.UserID}] = &cp
	return nil
}

func (m *mockShiftWorkerRepo) withUser(w *model.ShiftWorker) model.ShiftWorker {
	cp := *w
	if m.users != nil {
		m.users.mu.Lock()
		if u, ok := m.users.users[w.UserID]; ok {
			uc := *u
			cp.User = &uc
		}
		m.users.mu.Unlock()
	}
	return cp
}

func (m *mockShiftWorkerRepo) Get(_ context.Context, shiftID, userID int64) (*model.ShiftWorker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[workerKey{shiftID, userID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.withUser(w)
	return &cp, nil
}

func (m *mockShiftWorkerRepo) ListByShift(_ context.Context, shiftID int64) ([]model.ShiftWorker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.ShiftWorker
	for k, w := range m.workers {
		if k.shiftID == shiftID {
			result = append(result, m.withUser(w))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (m *mockShiftWorkerRepo) Update(_ context.Context, worker *model.ShiftWorker) error {
	if m.beforeUpd != nil {
		m.beforeUpd(worker)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateErr[worker.UserID]; err != nil {
		return err
	}
	key := workerKey{worker.ShiftID, worker.UserID}
	stored, ok := m.workers[key]
	if !ok || stored.Version != worker.Version {
		return pkgerrors.ErrOptimisticLock
	}
	cp := *worker
	cp.User = nil
	cp.Version = worker.Version + 1
	m.workers[key] = &cp
	worker.Version = cp.Version
	return nil
}

func (m *mockShiftWorkerRepo) ApproveShift(_ context.Context, shiftID, approverID int64, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, w := range m.workers {
		if k.shiftID == shiftID && w.CurrentStatus == model.ClockStatusClockedIn {
			return 0, repository.ErrShiftHasActiveWorkers
		}
	}
	var n int64
	for k, w := range m.workers {
		if k.shiftID != shiftID || w.TimesheetApproved {
			continue
		}
		w.TimesheetApproved = true
		w.ApprovedBy = &approverID
		w.ApprovedAt = &at
		w.Version++
		n++
	}
	return n, nil
}

// stored 直接读取存储中的记录（不经过副本）
func (m *mockShiftWorkerRepo) stored(shiftID, userID int64) model.ShiftWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.workers[workerKey{shiftID, userID}]
}

// ── 聚合 ──

type mockRepos struct {
	users   *mockUserRepo
	shifts  *mockShiftRepo
	workers *mockShiftWorkerRepo
}

func newMockRepository() (*repository.Repository, *mockRepos) {
	users := newMockUserRepo()
	m := &mockRepos{
		users:   users,
		shifts:  newMockShiftRepo(),
		workers: newMockShiftWorkerRepo(users),
	}
	return &repository.Repository{
		User:        m.users,
		Shift:       m.shifts,
		ShiftWorker: m.workers,
	}, m
}
