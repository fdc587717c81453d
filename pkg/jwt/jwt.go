package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"easyshifts/backend/config"
)

var (
	ErrTokenExpired     = errors.New("token 已过期")
	ErrTokenInvalid     = errors.New("token 无效")
	ErrVerifierDisabled = errors.New("未配置联合登录")
)

// IdentityClaims 身份提供方签发的 ID Token 声明
type IdentityClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	jwtv5.RegisteredClaims
}

// Verifier 联合登录 ID Token 校验器
// 支持 HS256 共享密钥或 RS256 公钥，二者择一
type Verifier struct {
	issuer    string
	audience  string
	secret    []byte
	publicKey *rsa.PublicKey
}

// NewVerifier 根据配置创建校验器；未配置密钥时返回 nil, nil
func NewVerifier(cfg *config.FederatedConfig) (*Verifier, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	v := &Verifier{issuer: cfg.Issuer, audience: cfg.Audience}
	if cfg.PublicKeyPEM != "" {
		key, err := jwtv5.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("解析身份提供方公钥失败: %w", err)
		}
		v.publicKey = key
	} else {
		v.secret = []byte(cfg.HMACSecret)
	}
	return v, nil
}

// Verify 校验签名、签发方、受众与过期时间，返回已验证的声明
func (v *Verifier) Verify(tokenString string) (*IdentityClaims, error) {
	if v == nil {
		return nil, ErrVerifierDisabled
	}

	opts := []jwtv5.ParserOption{jwtv5.WithExpirationRequired()}
	if v.publicKey != nil {
		opts = append(opts, jwtv5.WithValidMethods([]string{jwtv5.SigningMethodRS256.Alg()}))
	} else {
		opts = append(opts, jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}))
	}
	if v.issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwtv5.WithAudience(v.audience))
	}

	token, err := jwtv5.ParseWithClaims(tokenString, &IdentityClaims{}, func(t *jwtv5.Token) (interface{}, error) {
		if v.publicKey != nil {
			return v.publicKey, nil
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
