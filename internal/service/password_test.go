package service

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"easyshifts/backend/config"
)

func newTestHasher(policy config.PasswordPolicy) *PasswordHasher {
	return NewPasswordHasher(&config.AuthConfig{BcryptCost: bcrypt.MinCost, Password: policy})
}

func TestNewPasswordHasher_ClampsCost(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, bcrypt.DefaultCost},
		{1, bcrypt.MinCost},
		{99, bcrypt.MaxCost},
		{10, 10},
	}
	for _, tt := range tests {
		h := NewPasswordHasher(&config.AuthConfig{BcryptCost: tt.in})
		if h.cost != tt.want {
			t.Errorf("cost=%d: 期望 %d，实际 %d", tt.in, tt.want, h.cost)
		}
	}
}

func TestPasswordHasher_Verify(t *testing.T) {
	h := newTestHasher(config.PasswordPolicy{MinLength: 1})

	hashed, err := h.Hash("s3cret-pass")
	if err != nil {
		t.Fatalf("Hash 失败: %v", err)
	}
	if !strings.HasPrefix(hashed, "$2") {
		t.Fatalf("哈希应以 $2 开头: %s", hashed)
	}

	tests := []struct {
		name        string
		stored      string
		plain       string
		wantOK      bool
		wantUpgrade bool
	}{
		{"哈希匹配", hashed, "s3cret-pass", true, false},
		{"哈希不匹配", hashed, "wrong", false, false},
		{"明文匹配需升级", "pass", "pass", true, true},
		{"明文不匹配", "pass", "Pass", false, false},
		{"空存储值", "", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, upgrade := h.Verify(tt.stored, tt.plain)
			if ok != tt.wantOK || upgrade != tt.wantUpgrade {
				t.Errorf("期望 ok=%v upgrade=%v，实际 ok=%v upgrade=%v", tt.wantOK, tt.wantUpgrade, ok, upgrade)
			}
		})
	}
}

func TestPasswordHasher_CheckPolicy(t *testing.T) {
	h := newTestHasher(config.PasswordPolicy{
		MinLength:      8,
		RequireLetter:  true,
		RequireDigit:   true,
		RequireUpper:   true,
		RequireSpecial: true,
	})

	tests := []struct {
		name    string
		plain   string
		wantErr error
	}{
		{"过短", "Ab1!", ErrPasswordTooShort},
		{"过长", strings.Repeat("Aa1!", 20), ErrPasswordTooLong},
		{"缺字母", "12345678!", ErrPasswordNeedLetter},
		{"缺数字", "Abcdefgh!", ErrPasswordNeedDigit},
		{"缺大写", "abcdefg1!", ErrPasswordNeedUpper},
		{"缺特殊字符", "Abcdefg12", ErrPasswordNeedSpecial},
		{"满足全部规则", "Abcdef1!", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.CheckPolicy(tt.plain)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("期望通过，实际: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际 %v", tt.wantErr, err)
			}
		})
	}
}

func TestPasswordHasher_CheckPolicy_DefaultsOnly(t *testing.T) {
	h := newTestHasher(config.PasswordPolicy{MinLength: 8, RequireLetter: true, RequireDigit: true})
	if err := h.CheckPolicy("abcdefg1"); err != nil {
		t.Errorf("默认策略下小写字母加数字应通过: %v", err)
	}
}
