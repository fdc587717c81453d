package dto

// ── 认证模块 DTO ──

// LoginRequest 用户名密码登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// FederatedLoginRequest 联合登录请求（身份提供方签发的 ID Token）
type FederatedLoginRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}
