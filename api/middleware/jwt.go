package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/yunn234/yunn-shoppingmall/pkg/e"
	"github.com/yunn234/yunn-shoppingmall/pkg/utils"

	"github.com/gin-gonic/gin"
)

// JWTAuthMiddleware JWT认证中间件
func JWTAuthMiddleware(jwtUtil *utils.JWTUtil) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, e.ERROR_AUTH, e.GetMsg(e.ERROR_AUTH))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, e.ERROR_AUTH, "Authorization头格式错误")
			return
		}

		claims, err := jwtUtil.ParseToken(parts[1])
		if err != nil {
			if errors.Is(err, utils.ErrTokenExpired) {
				abortUnauthorized(c, e.ERROR_AUTH_CHECK_TOKEN_TIMEOUT, e.GetMsg(e.ERROR_AUTH_CHECK_TOKEN_TIMEOUT))
			} else {
				abortUnauthorized(c, e.ERROR_AUTH_CHECK_TOKEN_FAIL, e.GetMsg(e.ERROR_AUTH_CHECK_TOKEN_FAIL))
			}
			return
		}

		// 注入用户信息
		c.Set("user_id", claims.UserID)
		c.Set("user_type", claims.UserType)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, code int, msg string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": msg,
		"error":   code,
	})
	c.Abort()
}
