package v1

import (
	"net/http"

	"github.com/yunn234/yunn-shoppingmall/internal/service"
	"github.com/yunn234/yunn-shoppingmall/pkg/e"

	"github.com/gin-gonic/gin"
)

// CartHandler 购物车 HTTP 处理器
type CartHandler struct {
	cartService *service.CartService
}

func NewCartHandler(cartService *service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// RegisterRoutes 注册购物车路由（需 JWT）
func (h *CartHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.GetCart)
	rg.POST("/items", h.AddItem)
	rg.PUT("/items/:itemId", h.UpdateItem)
	rg.DELETE("/items/:itemId", h.RemoveItem)
	rg.DELETE("", h.ClearCart)
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.cartService.GetCart(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "", cart)
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req service.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, e.NewMsg(e.INVALID_PARAMS, err.Error()))
		return
	}

	cart, err := h.cartService.AddItem(c.Request.Context(), c.GetInt64("user_id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "已加入购物车", cart)
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req service.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, e.NewMsg(e.INVALID_PARAMS, err.Error()))
		return
	}

	cart, err := h.cartService.UpdateItem(c.Request.Context(),
		c.GetInt64("user_id"), toInt64(c.Param("itemId")), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "购物车已更新", cart)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	cart, err := h.cartService.RemoveItem(c.Request.Context(),
		c.GetInt64("user_id"), toInt64(c.Param("itemId")))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "商品已移出购物车", cart)
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	cart, err := h.cartService.ClearCart(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "购物车已清空", cart)
}
