package service

import (
	"crypto/subtle"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"easyshifts/backend/config"
	"easyshifts/backend/internal/model"
	pkgerrors "easyshifts/backend/pkg/errors"
)

// bcrypt 只使用前 72 字节
const maxPasswordBytes = 72

// 密码策略错误
var (
	ErrPasswordTooShort    = pkgerrors.New(pkgerrors.KindBadRequest, "密码长度不足")
	ErrPasswordTooLong     = pkgerrors.New(pkgerrors.KindBadRequest, "密码长度不能超过 72 字节")
	ErrPasswordNeedLetter  = pkgerrors.New(pkgerrors.KindBadRequest, "密码必须包含字母")
	ErrPasswordNeedDigit   = pkgerrors.New(pkgerrors.KindBadRequest, "密码必须包含数字")
	ErrPasswordNeedUpper   = pkgerrors.New(pkgerrors.KindBadRequest, "密码必须包含大写字母")
	ErrPasswordNeedSpecial = pkgerrors.New(pkgerrors.KindBadRequest, "密码必须包含特殊字符")
)

// PasswordHasher bcrypt 哈希、旧版明文兼容校验与密码策略
type PasswordHasher struct {
	cost   int
	policy config.PasswordPolicy
}

// NewPasswordHasher 创建 PasswordHasher；cost 超出 bcrypt 允许范围时收敛到边界
func NewPasswordHasher(cfg *config.AuthConfig) *PasswordHasher {
	cost := cfg.BcryptCost
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost, policy: cfg.Password}
}

// Hashable 明文是否可被 bcrypt 完整哈希
func (h *PasswordHasher) Hashable(plain string) bool {
	return len(plain) <= maxPasswordBytes
}

// Hash 生成 bcrypt 哈希
func (h *PasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify 校验密码
// 存储值为哈希时走 bcrypt；否则视为旧版明文做常量时间比较，匹配时 needsUpgrade=true
func (h *PasswordHasher) Verify(stored, plain string) (ok bool, needsUpgrade bool) {
	if stored == "" {
		return false, false
	}
	if model.IsPasswordHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil, false
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(plain)) == 1 {
		return true, true
	}
	return false, false
}

// CheckPolicy 按配置校验新密码复杂度，返回第一条不满足的规则
func (h *PasswordHasher) CheckPolicy(plain string) error {
	if len([]rune(plain)) < h.policy.MinLength {
		return ErrPasswordTooShort
	}
	if len(plain) > maxPasswordBytes {
		return ErrPasswordTooLong
	}

	var hasLetter, hasDigit, hasUpper, hasSpecial bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
			hasLetter = true
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	switch {
	case h.policy.RequireLetter && !hasLetter:
		return ErrPasswordNeedLetter
	case h.policy.RequireDigit && !hasDigit:
		return ErrPasswordNeedDigit
	case h.policy.RequireUpper && !hasUpper:
		return ErrPasswordNeedUpper
	case h.policy.RequireSpecial && !hasSpecial:
		return ErrPasswordNeedSpecial
	}
	return nil
}
