package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"easyshifts/backend/config"
	"easyshifts/backend/internal/api/handler"
	"easyshifts/backend/internal/api/middleware"
	"easyshifts/backend/internal/model"
	"easyshifts/backend/internal/repository"
	"easyshifts/backend/internal/service"
	"easyshifts/backend/pkg/redis"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

type testApp struct {
	engine  *gin.Engine
	mr      *miniredis.Miniredis
	shiftID int64
	worker  int64
}

func newTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:         8080,
			MaxBodyBytes: 1 << 20,
			CORS:         config.CORSConfig{AllowOrigins: []string{"http://localhost:3000"}},
		},
		Session: config.SessionConfig{
			TTL:               time.Hour,
			CreateMaxAttempts: 1,
			Cookie:            config.CookieConfig{SameSite: "Lax"},
		},
		Auth: config.AuthConfig{
			BcryptCost: 4,
			Password:   config.PasswordPolicy{MinLength: 8, RequireLetter: true, RequireDigit: true},
		},
		RateLimit: config.RateLimitConfig{LoginPerMinute: 100},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Shift{}, &model.ShiftWorker{}); err != nil {
		t.Fatalf("AutoMigrate 失败: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := repository.NewRepository(db)

	// 旧版明文密码，首次登录时升级为哈希
	manager := &model.User{Username: "boss", Password: "Manager1", Name: "经理", IsManager: true, IsActive: true}
	worker := &model.User{Username: "alice", Password: "Worker11", Name: "Alice", IsActive: true}
	for _, u := range []*model.User{manager, worker} {
		if err := repo.User.Create(ctx, u); err != nil {
			t.Fatalf("创建用户失败: %v", err)
		}
	}
	start := time.Now().Add(-time.Hour).UTC()
	shift := &model.Shift{JobName: "展会布展", ShiftStart: start, ShiftEnd: start.Add(8 * time.Hour)}
	if err := repo.Shift.Create(ctx, shift); err != nil {
		t.Fatalf("创建班次失败: %v", err)
	}
	sw := &model.ShiftWorker{ShiftID: shift.ShiftID, UserID: worker.UserID, Role: "crew", CurrentStatus: model.ClockStatusNotStarted}
	if err := repo.ShiftWorker.Create(ctx, sw); err != nil {
		t.Fatalf("创建工时卡失败: %v", err)
	}

	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	rdb := redis.New(raw, "easyshifts:", time.Second, zap.NewNop())

	svc := service.NewService(cfg, repo, rdb, nil, zap.NewNop())
	h := handler.NewHandler(svc, cfg)
	engine := Setup(cfg, h, svc.Session, rdb, zap.NewNop())

	return &testApp{engine: engine, mr: mr, shiftID: shift.ShiftID, worker: worker.UserID}
}

type loginData struct {
	SessionID string `json:"session_id"`
	CSRFToken string `json:"csrf_token"`
}

func (a *testApp) do(method, path string, body interface{}, sess *loginData, withCSRF bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sess != nil {
		req.Header.Set(middleware.SessionHeader, sess.SessionID)
		if withCSRF {
			req.Header.Set(middleware.CSRFHeader, sess.CSRFToken)
		}
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) login(t *testing.T, username, password string) *loginData {
	t.Helper()
	w := a.do("POST", "/api/v1/auth/login", map[string]string{"username": username, "password": password}, nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("登录失败: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data loginData `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.SessionID == "" || resp.Data.CSRFToken == "" {
		t.Fatal("登录响应缺少会话信息")
	}
	return &resp.Data
}

// ═══════════════════════════════════════════════════════════
// Tests
// ═══════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	app := newTestApp(t, newTestConfig())

	if w := app.do("GET", "/health", nil, nil, false); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	app.mr.Close()
	if w := app.do("GET", "/health", nil, nil, false); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 after redis shutdown, got %d", w.Code)
	}
}

func TestClockFlow(t *testing.T) {
	app := newTestApp(t, newTestConfig())
	sess := app.login(t, "alice", "Worker11")
	clockPath := fmt.Sprintf("/api/v1/shifts/%d/clock", app.shiftID)

	// 缺少 CSRF Token 的写请求被拒绝
	if w := app.do("POST", clockPath, map[string]string{"action": "clock_in"}, sess, false); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without csrf, got %d", w.Code)
	}

	if w := app.do("POST", clockPath, map[string]string{"action": "clock_in"}, sess, true); w.Code != http.StatusOK {
		t.Fatalf("clock_in: %d %s", w.Code, w.Body.String())
	}
	if w := app.do("POST", clockPath, map[string]string{"action": "clock_in"}, sess, true); w.Code != http.StatusConflict {
		t.Errorf("expected 409 on double clock_in, got %d", w.Code)
	}

	// 普通员工无权查看整班工时卡
	timecardPath := fmt.Sprintf("/api/v1/shifts/%d/timecard", app.shiftID)
	if w := app.do("GET", timecardPath, nil, sess, false); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for worker, got %d", w.Code)
	}

	boss := app.login(t, "boss", "Manager1")
	w := app.do("GET", timecardPath, nil, boss, false)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for manager, got %d", w.Code)
	}
	var resp struct {
		Data []struct {
			UserID        int64  `json:"user_id"`
			CurrentStatus string `json:"current_status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].CurrentStatus != model.ClockStatusClockedIn {
		t.Errorf("unexpected timecard: %+v", resp.Data)
	}

	// 收班后员工被强制签退
	endPath := fmt.Sprintf("/api/v1/shifts/%d/end", app.shiftID)
	if w := app.do("POST", endPath, nil, boss, true); w.Code != http.StatusOK {
		t.Fatalf("end shift: %d %s", w.Code, w.Body.String())
	}
	if w := app.do("POST", clockPath, map[string]string{"action": "clock_out"}, sess, true); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 clock_out after forced clock-out, got %d", w.Code)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	app := newTestApp(t, newTestConfig())
	sess := app.login(t, "alice", "Worker11")

	if w := app.do("GET", "/api/v1/auth/me", nil, sess, false); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := app.do("POST", "/api/v1/auth/logout", nil, sess, true); w.Code != http.StatusOK {
		t.Fatalf("logout: %d", w.Code)
	}
	if w := app.do("GET", "/api/v1/auth/me", nil, sess, false); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", w.Code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	cfg := newTestConfig()
	cfg.RateLimit.LoginPerMinute = 2
	app := newTestApp(t, cfg)

	body := map[string]string{"username": "alice", "password": "wrong-pass1"}
	for i := 0; i < 2; i++ {
		if w := app.do("POST", "/api/v1/auth/login", body, nil, false); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, w.Code)
		}
	}
	if w := app.do("POST", "/api/v1/auth/login", body, nil, false); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
}
