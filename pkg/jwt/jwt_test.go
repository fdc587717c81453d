package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"easyshifts/backend/config"
)

const testSecret = "federated-test-secret-2026"

func newHMACVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(&config.FederatedConfig{
		Issuer:     "https://idp.example.com",
		Audience:   "easyshifts",
		HMACSecret: testSecret,
	})
	if err != nil {
		t.Fatalf("NewVerifier 失败: %v", err)
	}
	return v
}

func signHS256(t *testing.T, claims IdentityClaims, secret string) string {
	t.Helper()
	s, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("签名失败: %v", err)
	}
	return s
}

func validClaims() IdentityClaims {
	now := time.Now()
	return IdentityClaims{
		Email:         "worker@example.com",
		EmailVerified: true,
		Name:          "Worker",
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    "https://idp.example.com",
			Audience:  jwtv5.ClaimStrings{"easyshifts"},
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(5 * time.Minute)),
		},
	}
}

func TestVerify_HS256Success(t *testing.T) {
	v := newHMACVerifier(t)

	claims, err := v.Verify(signHS256(t, validClaims(), testSecret))
	if err != nil {
		t.Fatalf("Verify 应成功: %v", err)
	}
	if claims.Email != "worker@example.com" {
		t.Errorf("期望 Email=worker@example.com，实际=%s", claims.Email)
	}
}

func TestVerify_Rejections(t *testing.T) {
	v := newHMACVerifier(t)

	expired := validClaims()
	expired.ExpiresAt = jwtv5.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "https://evil.example.com"

	wrongAudience := validClaims()
	wrongAudience.Audience = jwtv5.ClaimStrings{"other-app"}

	unverified := validClaims()
	unverified.EmailVerified = false

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"已过期", signHS256(t, expired, testSecret), ErrTokenExpired},
		{"签发方不符", signHS256(t, wrongIssuer, testSecret), ErrTokenInvalid},
		{"受众不符", signHS256(t, wrongAudience, testSecret), ErrTokenInvalid},
		{"邮箱未验证", signHS256(t, unverified, testSecret), ErrTokenInvalid},
		{"缺少过期时间", signHS256(t, noExpiry, testSecret), ErrTokenInvalid},
		{"密钥错误", signHS256(t, validClaims(), "another-secret"), ErrTokenInvalid},
		{"格式错误", "not-a-token", ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.token); !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
		})
	}
}

func TestVerify_RS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("生成 RSA 密钥失败: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("序列化公钥失败: %v", err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	v, err := NewVerifier(&config.FederatedConfig{
		Issuer:       "https://idp.example.com",
		Audience:     "easyshifts",
		PublicKeyPEM: string(pemKey),
	})
	if err != nil {
		t.Fatalf("NewVerifier 失败: %v", err)
	}

	signed, err := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, validClaims()).SignedString(key)
	if err != nil {
		t.Fatalf("签名失败: %v", err)
	}
	if _, err := v.Verify(signed); err != nil {
		t.Fatalf("RS256 Token 应校验通过: %v", err)
	}

	// 公钥模式下拒绝 HS256，防止算法混淆
	if _, err := v.Verify(signHS256(t, validClaims(), string(pemKey))); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("期望 ErrTokenInvalid，实际: %v", err)
	}
}

func TestNewVerifier_Disabled(t *testing.T) {
	v, err := NewVerifier(&config.FederatedConfig{})
	if err != nil || v != nil {
		t.Fatalf("未配置密钥时应返回 nil, nil，实际 v=%v err=%v", v, err)
	}
	if _, err := v.Verify("anything"); !errors.Is(err, ErrVerifierDisabled) {
		t.Errorf("期望 ErrVerifierDisabled，实际: %v", err)
	}
}
