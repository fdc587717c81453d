package dto

import "time"

// ── 认证模块响应 ──

// LoginResponse 登录成功响应：会话 ID 与 CSRF Token 成对下发
type LoginResponse struct {
	SessionID string       `json:"session_id"`
	CSRFToken string       `json:"csrf_token"`
	User      UserResponse `json:"user"`
}

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	IsManager bool   `json:"is_manager"`
	IsAdmin   bool   `json:"is_admin"`
}

// SessionResponse 活跃会话（不含会话 ID 与 CSRF Token 原文）
type SessionResponse struct {
	Handle       string    `json:"handle"` // 会话 ID 的摘要，用于撤销
	LoginMethod  string    `json:"login_method"`
	ClientIP     string    `json:"client_ip,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	IsCurrent    bool      `json:"is_current"`
}
