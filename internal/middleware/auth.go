package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/peter-abah/conecr/internal/auth"
	apperrors "github.com/peter-abah/conecr/internal/errors"
	"github.com/peter-abah/conecr/pkg/response"
)

// TokenAuth JWT 认证中间件
// 验证通过后把主体放入请求 context，供服务层的认证前置检查使用
func TokenAuth(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c.GetHeader("Authorization"))
		if token == "" {
			response.Error(c, apperrors.CodeUnauthenticated)
			c.Abort()
			return
		}

		uid, err := tokens.Validate(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				response.Error(c, apperrors.CodeTokenExpired)
			} else {
				response.Error(c, apperrors.CodeTokenInvalid)
			}
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), uid))
		c.Next()
	}
}

// extractToken 从 Authorization header 提取 token
func extractToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
