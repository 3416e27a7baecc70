package service

import (
	"context"
	"errors"
	"strings"

	"github.com/yunn234/yunn-shoppingmall/internal/dao"
	"github.com/yunn234/yunn-shoppingmall/internal/model"
	"github.com/yunn234/yunn-shoppingmall/pkg/e"

	"gorm.io/gorm"
)

type ProductService struct {
	productDao *dao.ProductDao
}

func NewProductService(productDao *dao.ProductDao) *ProductService {
	return &ProductService{
		productDao: productDao,
	}
}

// CreateProductRequest 创建/更新商品请求
type CreateProductRequest struct {
	ProductCode string                `json:"product_code" binding:"required"`
	Name        string                `json:"name" binding:"required"`
	Price       int64                 `json:"price"`
	Category    model.Category        `json:"category" binding:"required"`
	Images      []string              `json:"images" binding:"required"`
	Options     []model.ProductOption `json:"options" binding:"required"`
	Description string                `json:"description"`
	Status      model.ProductStatus   `json:"status"`
}

// CreateProduct 创建商品
func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*model.Product, error) {
	if !req.Category.Valid() {
		return nil, e.New(e.ERROR_INVALID_CATEGORY)
	}
	if req.Price < 0 {
		return nil, e.NewMsg(e.INVALID_PARAMS, "商品价格必须大于等于0")
	}
	if len(req.Images) == 0 {
		return nil, e.NewMsg(e.INVALID_PARAMS, "至少需要一张商品图片")
	}
	if len(req.Options) == 0 {
		return nil, e.NewMsg(e.INVALID_PARAMS, "至少需要一个商品选项")
	}

	// 商品编码统一大写存储
	code := strings.ToUpper(strings.TrimSpace(req.ProductCode))
	exists, err := s.productDao.ProductCodeExists(ctx, code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, e.New(e.ERROR_PRODUCT_CODE_EXISTS)
	}

	status := req.Status
	if status == "" {
		status = model.ProductOnSale
	}

	productModel := &model.Product{
		ProductCode: code,
		Name:        req.Name,
		Price:       req.Price,
		Category:    req.Category,
		Images:      req.Images,
		Options:     req.Options,
		Description: req.Description,
		Status:      status,
	}

	if _, err := s.productDao.CreateProduct(ctx, productModel); err != nil {
		return nil, err
	}
	return productModel, nil
}

// GetProduct 获取商品详情
func (s *ProductService) GetProduct(ctx context.Context, productID int64) (*model.Product, error) {
	productInfo, err := s.productDao.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, e.New(e.ERROR_PRODUCT_NOT_EXISTS)
		}
		return nil, err
	}
	return productInfo, nil
}

// ListProducts 商品分页列表
func (s *ProductService) ListProducts(ctx context.Context, category, status, name string, page, pageSize int) ([]*model.Product, int64, error) {
	return s.productDao.ListProducts(ctx, category, status, name, page, pageSize)
}

// UpdateProductRequest 商品更新请求，零值字段保持原样
type UpdateProductRequest struct {
	Name        string                `json:"name"`
	Price       int64                 `json:"price"`
	Category    model.Category        `json:"category"`
	Images      []string              `json:"images"`
	Options     []model.ProductOption `json:"options"`
	Description string                `json:"description"`
	Status      model.ProductStatus   `json:"status"`
}

// UpdateProduct 更新商品
func (s *ProductService) UpdateProduct(ctx context.Context, productID int64, req *UpdateProductRequest) (*model.Product, error) {
	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Price > 0 {
		updates["price"] = req.Price
	}
	if req.Category != "" {
		if !req.Category.Valid() {
			return nil, e.New(e.ERROR_INVALID_CATEGORY)
		}
		updates["category"] = req.Category
	}
	if len(req.Images) > 0 {
		updates["images"] = model.ImageList(req.Images)
	}
	if len(req.Options) > 0 {
		updates["options"] = model.OptionList(req.Options)
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Status != "" {
		if req.Status != model.ProductOnSale && req.Status != model.ProductDiscontinued {
			return nil, e.NewMsg(e.INVALID_PARAMS, "商品状态不合法")
		}
		updates["status"] = req.Status
	}

	if len(updates) > 0 {
		if err := s.productDao.UpdateProduct(ctx, productID, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, e.New(e.ERROR_PRODUCT_NOT_EXISTS)
			}
			return nil, err
		}
	}

	return s.GetProduct(ctx, productID)
}

// DeleteProduct 删除商品
func (s *ProductService) DeleteProduct(ctx context.Context, productID int64) error {
	err := s.productDao.DeleteProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return e.New(e.ERROR_PRODUCT_NOT_EXISTS)
		}
		return err
	}
	return nil
}
