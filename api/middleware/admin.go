package middleware

import (
	"net/http"

	"github.com/yunn234/yunn-shoppingmall/internal/model"
	"github.com/yunn234/yunn-shoppingmall/pkg/e"

	"github.com/gin-gonic/gin"
)

// AdminRequired 管理员权限中间件，必须挂在JWTAuthMiddleware之后
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("user_type") != model.UserTypeAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": e.GetMsg(e.ERROR_FORBIDDEN),
				"error":   e.ERROR_FORBIDDEN,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
