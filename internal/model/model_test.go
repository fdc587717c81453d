package model

import (
	"strings"
	"testing"
	"time"
)

// fakeHash 以给定前缀补齐到 bcrypt 长度
func fakeHash(prefix string) string {
	return prefix + strings.Repeat("a", PasswordHashLen-len(prefix))
}

func TestIsPasswordHash(t *testing.T) {
	tests := []struct {
		stored string
		want   bool
	}{
		{fakeHash("$2a$10$"), true},
		{fakeHash("$2b$12$"), true},
		{fakeHash("$2y$10$"), true},
		{"pass", false},
		{"", false},
		{"$2x", false},
		// 前缀吻合但长度不符的明文
		{"$2a$mypassword", false},
		{fakeHash("$2a$10$") + "x", false},
		{fakeHash("$2x$10$"), false},
	}
	for _, tt := range tests {
		if got := IsPasswordHash(tt.stored); got != tt.want {
			t.Errorf("IsPasswordHash(%q)=%v，期望 %v", tt.stored, got, tt.want)
		}
	}
}

func TestShiftWorker_Pairs(t *testing.T) {
	w := &ShiftWorker{}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	w.SetClockIn(0, base)
	w.SetClockOut(0, base.Add(3*time.Hour))
	w.SetClockIn(1, base.Add(4*time.Hour))

	pairs := w.Pairs()
	if !pairs[0].Closed() {
		t.Error("第 1 组应已闭合")
	}
	if !pairs[1].Open() {
		t.Error("第 2 组应处于打开状态")
	}
	if pairs[2].In != nil || pairs[2].Out != nil {
		t.Error("第 3 组应为空")
	}
}
