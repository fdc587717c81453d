package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	pkgerrors "easyshifts/backend/pkg/errors"
	"easyshifts/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果会话中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "未登录")
		return 0, false
	}
	id, ok := v.(int64)
	if !ok || id <= 0 {
		response.Unauthorized(c, "未登录")
		return 0, false
	}
	return id, true
}

// GetSessionID 当前请求的会话 ID
func GetSessionID(c *gin.Context) string {
	return c.GetString("session_id")
}

// IsManager 当前用户是否有经理权限（管理员视同经理）
func IsManager(c *gin.Context) bool {
	return c.GetBool("is_manager") || c.GetBool("is_admin")
}

// MustParseIDParam 解析路径中的正整数 ID，失败时写入 400 响应
func MustParseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, name+" 无效")
		return 0, false
	}
	return id, true
}

// MustBindJSON 绑定 JSON 请求体，失败时写入响应。
// 超过 BodyLimit 上限返回 413，其余绑定或校验错误返回 400
func MustBindJSON(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, pkgerrors.KindTooLarge, "请求体过大")
		return false
	}
	response.BadRequest(c, "参数校验失败")
	return false
}
