package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"Circle_Community/internal/pkg"
)

const ContextUserIDKey = "user_id"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uint64, error)
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": msg})
}

func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			unauthorized(c, "invalid authorization format")
			return
		}

		// 校验签名、过期时间以及是否是当前有效的 token
		userID, err := auth.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			// 会话存储不可用时是 500，不是 401
			c.AbortWithStatusJSON(pkg.HTTPStatus(err), gin.H{"success": false, "message": pkg.PublicMessage(err)})
			return
		}

		// 注入 user_id
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// UserID 取 AuthMiddleware 写入的当前用户
func UserID(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
