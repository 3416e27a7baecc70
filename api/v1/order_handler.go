package v1

import (
	"net/http"
	"time"

	"github.com/yunn234/yunn-shoppingmall/internal/model"
	"github.com/yunn234/yunn-shoppingmall/internal/service"
	"github.com/yunn234/yunn-shoppingmall/pkg/e"

	"github.com/gin-gonic/gin"
)

// OrderHandler 订单 HTTP 处理器
type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// RegisterRoutes 注册订单路由（需 JWT）
// 统一规范：不在 handler 内再创建分组或添加限流
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/my", h.ListMyOrders)
	rg.GET("/order-number/:orderNumber", h.GetOrderByNumber)
	rg.GET(":id", h.GetOrder)
	rg.PUT(":id/status", h.UpdateStatus)
	rg.DELETE(":id", h.CancelOrder)
}

// RegisterAdminRoutes 管理员订单路由
func (h *OrderHandler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/all", h.ListAllOrders)
	rg.PUT(":id/shipping", h.UpdateShipping)
}

func isAdminRequest(c *gin.Context) bool {
	return c.GetString("user_type") == model.UserTypeAdmin
}

// PlaceOrder 下单入口，单独注册以便挂专用限流
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, e.NewMsg(e.INVALID_PARAMS, err.Error()))
		return
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), c.GetInt64("user_id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusCreated, "下单成功", order)
}

func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	page, limit := pageParams(c)
	orders, total, err := h.orderService.ListMyOrders(c.Request.Context(),
		c.GetInt64("user_id"), c.Query("status"), page, limit)
	if err != nil {
		Fail(c, err)
		return
	}
	Paginated(c, "", orders, page, limit, total)
}

func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	page, limit := pageParams(c)
	startDate, err := parseDateQuery(c.Query("start_date"), false)
	if err != nil {
		Fail(c, err)
		return
	}
	endDate, err := parseDateQuery(c.Query("end_date"), true)
	if err != nil {
		Fail(c, err)
		return
	}

	orders, total, err := h.orderService.ListAllOrders(c.Request.Context(),
		toInt64(c.Query("user_id")), c.Query("status"), startDate, endDate, page, limit)
	if err != nil {
		Fail(c, err)
		return
	}
	Paginated(c, "", orders, page, limit, total)
}

// parseDateQuery 解析YYYY-MM-DD过滤参数，endOfDay时取当天末尾使区间闭合
func parseDateQuery(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, e.NewMsg(e.INVALID_PARAMS, "日期格式应为YYYY-MM-DD: "+raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(),
		toInt64(c.Param("id")), c.GetInt64("user_id"), isAdminRequest(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "", order)
}

func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	order, err := h.orderService.GetOrderByNumber(c.Request.Context(),
		c.Param("orderNumber"), c.GetInt64("user_id"), isAdminRequest(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "", order)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, e.NewMsg(e.INVALID_PARAMS, err.Error()))
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(),
		toInt64(c.Param("id")), c.GetInt64("user_id"), isAdminRequest(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "订单状态已更新", order)
}

func (h *OrderHandler) UpdateShipping(c *gin.Context) {
	var req service.UpdateShippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, e.NewMsg(e.INVALID_PARAMS, err.Error()))
		return
	}

	order, err := h.orderService.UpdateShipping(c.Request.Context(), toInt64(c.Param("id")), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "物流信息已更新", order)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	order, err := h.orderService.CancelOrder(c.Request.Context(),
		toInt64(c.Param("id")), c.GetInt64("user_id"), isAdminRequest(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "订单已取消", order)
}
