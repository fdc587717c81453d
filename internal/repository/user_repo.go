package repository

import (
	"context"

	"gorm.io/gorm"

	"easyshifts/backend/internal/model"
	pkgerrors "easyshifts/backend/pkg/errors"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpgradeLegacyPassword 仅当库中仍是 legacy 明文时替换为哈希，返回是否发生替换
	UpgradeLegacyPassword(ctx context.Context, userID int64, legacy, hashed string) (bool, error)
	// SetPassword 带乐观锁写入新密码哈希
	SetPassword(ctx context.Context, user *model.User, hashed string) error
	ListWithLegacyPassword(ctx context.Context) ([]model.User, error)
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) UpgradeLegacyPassword(ctx context.Context, userID int64, legacy, hashed string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ? AND password = ?", userID, legacy).
		Updates(map[string]interface{}{
			"password": hashed,
			"version":  gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *userRepo) SetPassword(ctx context.Context, user *model.User, hashed string) error {
	oldVersion := user.Version
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ? AND version = ?", user.UserID, oldVersion).
		Updates(map[string]interface{}{
			"password": hashed,
			"version":  oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	user.Password = hashed
	user.Version = oldVersion + 1
	return nil
}

func (r *userRepo) ListWithLegacyPassword(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("LENGTH(password) <> ? OR (password NOT LIKE ? AND password NOT LIKE ? AND password NOT LIKE ?)",
			model.PasswordHashLen, "$2a$%", "$2b$%", "$2y$%").
		Order("user_id ASC").
		Find(&users).Error
	return users, err
}
