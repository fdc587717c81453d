package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsAllowHeaders  = strings.Join([]string{"Content-Type", CSRFHeader, SessionHeader, RequestIDHeader}, ", ")
	corsExposeHeaders = strings.Join([]string{RequestIDHeader, "Content-Disposition"}, ", ")
)

// CORS 跨域中间件
// 会话依赖 Cookie，只对白名单来源开放凭据；非白名单来源的预检直接拒绝
func CORS(allowOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowOrigins))
	for _, o := range allowOrigins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		_, ok := allowed[origin]
		preflight := c.Request.Method == http.MethodOptions

		if origin != "" {
			c.Header("Vary", "Origin")
		}
		if !ok {
			if preflight && origin != "" {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Expose-Headers", corsExposeHeaders)
		if preflight {
			c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
