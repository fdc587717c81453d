package errors

import (
	"errors"
	"fmt"
	"testing"
)

var errSample = New(KindConflict, "示例冲突")

func TestError_IsMatchesWrappedCopy(t *testing.T) {
	cause := errors.New("db down")
	wrapped := Wrap(KindConflict, errSample.Message, cause)

	if !errors.Is(wrapped, errSample) {
		t.Error("包装副本应与哨兵匹配")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("应能解包到底层原因")
	}
	if errors.Is(Wrap(KindInternal, errSample.Message, cause), errSample) {
		t.Error("分类不同不应匹配")
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"sentinel", errSample, KindConflict},
		{"fmt 包装", fmt.Errorf("ctx: %w", errSample), KindConflict},
		{"未分类", errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMessageOf_HidesInternalCause(t *testing.T) {
	if got := MessageOf(errors.New("pq: password authentication failed")); got != "服务器内部错误" {
		t.Errorf("未分类错误不应泄露原因: %q", got)
	}
	wrapped := Wrap(KindUnavailable, "存储暂不可用", errors.New("dial tcp"))
	if got := MessageOf(wrapped); got != "存储暂不可用" {
		t.Errorf("MessageOf = %q", got)
	}
	if wrapped.Error() != "存储暂不可用: dial tcp" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
}
