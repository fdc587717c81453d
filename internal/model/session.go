package model

import "time"

// 登录方式
const (
	LoginMethodPassword  = "password"
	LoginMethodFederated = "federated"
)

// Session 会话记录，以 JSON 存于 Redis（<prefix>session:<id>）
// CSRFToken 只在创建会话时生成，之后不再修改
type Session struct {
	SessionID    string    `json:"session_id"`
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	IsManager    bool      `json:"is_manager"`
	IsAdmin      bool      `json:"is_admin"`
	Email        string    `json:"email,omitempty"`
	LoginMethod  string    `json:"login_method"`
	ClientIP     string    `json:"client_ip,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	CSRFToken    string    `json:"csrf_token"`
}

// SessionUser 创建会话所需的用户属性
type SessionUser struct {
	UserID      int64
	Username    string
	IsManager   bool
	IsAdmin     bool
	Email       string
	LoginMethod string
}
