package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	pkgerrors "easyshifts/backend/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestFail_KindToStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{"bad_request", pkgerrors.New(pkgerrors.KindBadRequest, "参数错误"), http.StatusBadRequest, "bad_request", "参数错误"},
		{"unauthorized", pkgerrors.New(pkgerrors.KindUnauthorized, "未登录"), http.StatusUnauthorized, "unauthorized", "未登录"},
		{"forbidden", pkgerrors.New(pkgerrors.KindForbidden, "无权限"), http.StatusForbidden, "forbidden", "无权限"},
		{"not_found", pkgerrors.New(pkgerrors.KindNotFound, "不存在"), http.StatusNotFound, "not_found", "不存在"},
		{"conflict", pkgerrors.New(pkgerrors.KindConflict, "冲突"), http.StatusConflict, "conflict", "冲突"},
		{"payload_too_large", pkgerrors.New(pkgerrors.KindTooLarge, "请求体过大"), http.StatusRequestEntityTooLarge, "payload_too_large", "请求体过大"},
		{"unavailable", pkgerrors.Wrap(pkgerrors.KindUnavailable, "暂不可用", errors.New("dial tcp")), http.StatusServiceUnavailable, "unavailable", "暂不可用"},
		{"unclassified", errors.New("pq: secret detail"), http.StatusInternalServerError, "internal", "服务器内部错误"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			Fail(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("期望状态码 %d，实际 %d", tt.wantStatus, w.Code)
			}
			var resp Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("解析响应失败: %v", err)
			}
			if resp.Success {
				t.Error("失败响应 success 应为 false")
			}
			if resp.Kind != tt.wantKind || resp.Error != tt.wantMsg {
				t.Errorf("期望 kind=%s error=%s，实际 kind=%s error=%s", tt.wantKind, tt.wantMsg, resp.Kind, resp.Error)
			}
		})
	}
}

func TestOK_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	OK(c, map[string]int{"n": 1})

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["success"] != true {
		t.Error("success 应为 true")
	}
	if _, ok := body["kind"]; ok {
		t.Error("成功响应不应包含 kind")
	}
	data, _ := body["data"].(map[string]interface{})
	if data["n"] != float64(1) {
		t.Errorf("data 不符: %v", body["data"])
	}
}
