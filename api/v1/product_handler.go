package v1

import (
	"net/http"

	"github.com/yunn234/yunn-shoppingmall/internal/service"
	"github.com/yunn234/yunn-shoppingmall/pkg/e"

	"github.com/gin-gonic/gin"
)

// ProductHandler 商品 HTTP 处理器
type ProductHandler struct {
	productService *service.ProductService
}

func NewProductHandler(productService *service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// RegisterRoutes 商品公开路由，浏览无需登录
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListProducts)
	rg.GET(":id", h.GetProduct)
}

// RegisterAdminRoutes 商品管理路由（管理员）
func (h *ProductHandler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.CreateProduct)
	rg.PUT(":id", h.UpdateProduct)
	rg.DELETE(":id", h.DeleteProduct)
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, limit := pageParams(c)
	products, total, err := h.productService.ListProducts(c.Request.Context(),
		c.Query("category"), c.Query("status"), c.Query("name"), page, limit)
	if err != nil {
		Fail(c, err)
		return
	}
	Paginated(c, "", products, page, limit, total)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), toInt64(c.Param("id")))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "", product)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, e.NewMsg(e.INVALID_PARAMS, err.Error()))
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusCreated, "商品已上架", product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, e.NewMsg(e.INVALID_PARAMS, err.Error()))
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), toInt64(c.Param("id")), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "商品已更新", product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.productService.DeleteProduct(c.Request.Context(), toInt64(c.Param("id"))); err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, "商品已删除", nil)
}
