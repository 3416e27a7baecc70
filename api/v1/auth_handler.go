package v1

import (
	"net/http"

	"github.com/yunn234/yunn-shoppingmall/internal/service"
	"github.com/yunn234/yunn-shoppingmall/pkg/e"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证相关 HTTP 处理器
type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes 注册认证路由（无需 JWT）
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
}

// RegisterProtectedRoutes 需要 JWT 的认证路由
func (h *AuthHandler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, e.NewMsg(e.INVALID_PARAMS, err.Error()))
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusCreated, "注册成功", user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, e.NewMsg(e.INVALID_PARAMS, err.Error()))
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "登录成功", result)
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.GetCurrentUser(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "", user)
}
