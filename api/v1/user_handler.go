package v1

import (
	"net/http"

	"github.com/yunn234/yunn-shoppingmall/internal/model"
	"github.com/yunn234/yunn-shoppingmall/internal/service"
	"github.com/yunn234/yunn-shoppingmall/pkg/e"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户 HTTP 处理器
type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRoutes 注册用户路由（需 JWT）
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET(":id", h.GetUser)
	rg.PUT(":id", h.UpdateUser)
	rg.DELETE(":id", h.DeleteUser)
}

// RegisterAdminRoutes 管理员用户路由
func (h *UserHandler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListUsers)
}

// 本人或管理员才能操作指定用户
func canAccessUser(c *gin.Context, targetID int64) bool {
	return c.GetInt64("user_id") == targetID || c.GetString("user_type") == model.UserTypeAdmin
}

func (h *UserHandler) GetUser(c *gin.Context) {
	targetID := toInt64(c.Param("id"))
	if !canAccessUser(c, targetID) {
		FailCode(c, e.ERROR_FORBIDDEN)
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), targetID)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "", user)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, limit := pageParams(c)
	users, total, err := h.userService.ListUsers(c.Request.Context(), c.Query("user_type"), page, limit)
	if err != nil {
		Fail(c, err)
		return
	}
	Paginated(c, "", users, page, limit, total)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	targetID := toInt64(c.Param("id"))
	if !canAccessUser(c, targetID) {
		FailCode(c, e.ERROR_FORBIDDEN)
		return
	}

	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, e.NewMsg(e.INVALID_PARAMS, err.Error()))
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), targetID, &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "用户信息已更新", user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	targetID := toInt64(c.Param("id"))
	if !canAccessUser(c, targetID) {
		FailCode(c, e.ERROR_FORBIDDEN)
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), targetID); err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "用户已注销", nil)
}
