package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"easyshifts/backend/config"
	"easyshifts/backend/internal/model"
	pkgerrors "easyshifts/backend/pkg/errors"
	"easyshifts/backend/pkg/redis"
)

// 会话 ID 与 CSRF Token 均为 256 位随机数
const sessionTokenBytes = 32

const sessionKeyPrefix = "session:"

var (
	ErrSessionNotFound         = pkgerrors.New(pkgerrors.KindNotFound, "会话不存在或已过期")
	ErrSessionUserInvalid      = pkgerrors.New(pkgerrors.KindBadRequest, "会话用户缺少 user_id 或 username")
	ErrSessionCreateFailed     = pkgerrors.New(pkgerrors.KindUnavailable, "会话创建失败，请稍后重试")
	ErrSessionStoreUnavailable = pkgerrors.New(pkgerrors.KindUnavailable, "会话服务暂不可用")
	ErrSessionCorrupted        = pkgerrors.New(pkgerrors.KindInternal, "会话数据损坏")
	ErrCSRFMismatch            = pkgerrors.New(pkgerrors.KindUnauthorized, "CSRF 校验失败")
	ErrSessionIPMismatch       = pkgerrors.New(pkgerrors.KindUnauthorized, "会话与客户端地址不匹配")
)

// SessionStore 会话存储所需的键值操作，由 pkg/redis.Client 实现
// 键不存在时 Get 返回 redis.ErrKeyNotFound
type SessionStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetIfExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}

// SessionManager 会话生命周期管理
type SessionManager interface {
	CreateSession(ctx context.Context, user model.SessionUser, clientIP string) (sessionID, csrfToken string, err error)
	// GetSession 读取会话并滑动续期
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	// ValidateSession 校验 CSRF Token（以及开启时的客户端 IP），通过后才续期
	ValidateSession(ctx context.Context, sessionID, csrfToken, clientIP string) (*model.Session, error)
	InvalidateSession(ctx context.Context, sessionID string) error
	// ListActiveSessions 遍历全部会话键，O(会话总数)
	ListActiveSessions(ctx context.Context, userID int64) ([]model.Session, error)
	// InvalidateUserSessions 删除用户除 keepSessionID 外的全部会话，返回删除数量
	InvalidateUserSessions(ctx context.Context, userID int64, keepSessionID string) (int, error)
}

type sessionManager struct {
	store  SessionStore
	cfg    config.SessionConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionManager 创建 SessionManager 实例
func NewSessionManager(store SessionStore, cfg *config.SessionConfig, logger *zap.Logger) SessionManager {
	return &sessionManager{
		store:  store,
		cfg:    *cfg,
		logger: logger,
		now:    time.Now,
	}
}

func sessionKey(sessionID string) string { return sessionKeyPrefix + sessionID }

// shortID 日志中只记录会话 ID 前缀
func shortID(sessionID string) string {
	if len(sessionID) > 8 {
		return sessionID[:8]
	}
	return sessionID
}

func newSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *sessionManager) CreateSession(ctx context.Context, user model.SessionUser, clientIP string) (string, string, error) {
	if user.UserID <= 0 || strings.TrimSpace(user.Username) == "" {
		return "", "", ErrSessionUserInvalid
	}
	if user.LoginMethod == "" {
		user.LoginMethod = model.LoginMethodPassword
	}

	sessionID, err := newSessionToken()
	if err != nil {
		s.logger.Error("生成会话 ID 失败", zap.Error(err))
		return "", "", pkgerrors.Wrap(pkgerrors.KindInternal, "生成会话 ID 失败", err)
	}
	csrfToken, err := newSessionToken()
	if err != nil {
		s.logger.Error("生成 CSRF Token 失败", zap.Error(err))
		return "", "", pkgerrors.Wrap(pkgerrors.KindInternal, "生成 CSRF Token 失败", err)
	}

	now := s.now().UTC()
	sess := model.Session{
		SessionID:    sessionID,
		UserID:       user.UserID,
		Username:     user.Username,
		IsManager:    user.IsManager,
		IsAdmin:      user.IsAdmin,
		Email:        user.Email,
		LoginMethod:  user.LoginMethod,
		ClientIP:     clientIP,
		CreatedAt:    now,
		LastAccessed: now,
		CSRFToken:    csrfToken,
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.KindInternal, "序列化会话失败", err)
	}

	// ── 带指数退避的写入 ──
	attempt := 0
	write := func() (struct{}, error) {
		attempt++
		err := s.store.Set(ctx, sessionKey(sessionID), payload, s.cfg.TTL)
		if err == nil {
			return struct{}{}, nil
		}
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		s.logger.Warn("写入会话失败",
			zap.Int64("user_id", user.UserID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return struct{}{}, err
	}
	if _, err := backoff.Retry(ctx, write,
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(uint(s.maxAttempts())),
	); err != nil {
		s.logger.Error("会话创建失败",
			zap.Int64("user_id", user.UserID),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		// 超时的写入可能已落库，尽力删除避免留下孤儿会话
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		_ = s.store.Delete(cleanupCtx, sessionKey(sessionID))
		cancel()
		return "", "", pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrSessionCreateFailed.Message, err)
	}

	s.logger.Info("会话已创建",
		zap.Int64("user_id", user.UserID),
		zap.String("session", shortID(sessionID)),
		zap.String("login_method", user.LoginMethod),
	)
	return sessionID, csrfToken, nil
}

func (s *sessionManager) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if s.cfg.CreateBackoff > 0 {
		b.InitialInterval = s.cfg.CreateBackoff
		b.MaxInterval = 8 * s.cfg.CreateBackoff
	}
	return b
}

func (s *sessionManager) maxAttempts() int {
	if s.cfg.CreateMaxAttempts < 1 {
		return 1
	}
	return s.cfg.CreateMaxAttempts
}

func (s *sessionManager) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.refresh(ctx, sessionID, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// refresh 写回最近访问时间并重置 TTL
func (s *sessionManager) refresh(ctx context.Context, sessionID string, sess *model.Session) error {
	sess.LastAccessed = s.now().UTC()
	payload, err := json.Marshal(sess)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.KindInternal, "序列化会话失败", err)
	}
	// SET XX：会话在读取后被并发删除时不再写回
	refreshed, err := s.store.SetIfExists(ctx, sessionKey(sessionID), payload, s.cfg.TTL)
	if err != nil {
		s.logger.Error("会话续期失败", zap.String("session", shortID(sessionID)), zap.Error(err))
		return pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrSessionStoreUnavailable.Message, err)
	}
	if !refreshed {
		return ErrSessionNotFound
	}
	return nil
}

// load 读取并解析会话，不续期
func (s *sessionManager) load(ctx context.Context, sessionID string) (*model.Session, error) {
	raw, err := s.store.Get(ctx, sessionKey(sessionID))
	if errors.Is(err, redis.ErrKeyNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		s.logger.Error("读取会话失败", zap.String("session", shortID(sessionID)), zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrSessionStoreUnavailable.Message, err)
	}

	var sess model.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		s.logger.Error("会话数据损坏", zap.String("session", shortID(sessionID)), zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.KindInternal, ErrSessionCorrupted.Message, err)
	}
	return &sess, nil
}

func (s *sessionManager) ValidateSession(ctx context.Context, sessionID, csrfToken, clientIP string) (*model.Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if csrfToken == "" || subtle.ConstantTimeCompare([]byte(sess.CSRFToken), []byte(csrfToken)) != 1 {
		s.logger.Warn("CSRF 校验失败", zap.Int64("user_id", sess.UserID), zap.String("session", shortID(sessionID)))
		return nil, ErrCSRFMismatch
	}
	if s.cfg.IPPinning && sess.ClientIP != "" && sess.ClientIP != clientIP {
		s.logger.Warn("会话客户端地址不匹配",
			zap.Int64("user_id", sess.UserID),
			zap.String("session", shortID(sessionID)),
			zap.String("client_ip", clientIP),
		)
		return nil, ErrSessionIPMismatch
	}
	if err := s.refresh(ctx, sessionID, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *sessionManager) InvalidateSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.store.Delete(ctx, sessionKey(sessionID)); err != nil {
		s.logger.Error("删除会话失败", zap.String("session", shortID(sessionID)), zap.Error(err))
		return pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrSessionStoreUnavailable.Message, err)
	}
	return nil
}

func (s *sessionManager) ListActiveSessions(ctx context.Context, userID int64) ([]model.Session, error) {
	keys, err := s.store.ScanKeys(ctx, sessionKeyPrefix+"*")
	if err != nil {
		s.logger.Error("遍历会话失败", zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrSessionStoreUnavailable.Message, err)
	}

	sessions := make([]model.Session, 0)
	for _, key := range keys {
		sess, err := s.load(ctx, strings.TrimPrefix(key, sessionKeyPrefix))
		switch {
		case errors.Is(err, ErrSessionNotFound):
			// 遍历期间过期
			continue
		case errors.Is(err, ErrSessionCorrupted):
			continue
		case err != nil:
			return nil, err
		}
		if sess.UserID == userID {
			sessions = append(sessions, *sess)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (s *sessionManager) InvalidateUserSessions(ctx context.Context, userID int64, keepSessionID string) (int, error) {
	sessions, err := s.ListActiveSessions(ctx, userID)
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		if sess.SessionID == keepSessionID {
			continue
		}
		keys = append(keys, sessionKey(sess.SessionID))
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := s.store.Delete(ctx, keys...); err != nil {
		s.logger.Error("批量删除会话失败", zap.Int64("user_id", userID), zap.Error(err))
		return 0, pkgerrors.Wrap(pkgerrors.KindUnavailable, ErrSessionStoreUnavailable.Message, err)
	}

	s.logger.Info("已注销用户其他会话", zap.Int64("user_id", userID), zap.Int("count", len(keys)))
	return len(keys), nil
}
