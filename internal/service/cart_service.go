package service

import (
	"context"
	"errors"

	"github.com/yunn234/yunn-shoppingmall/internal/dao"
	"github.com/yunn234/yunn-shoppingmall/internal/model"
	"github.com/yunn234/yunn-shoppingmall/pkg/e"

	"gorm.io/gorm"
)

type CartService struct {
	cartStore    CartStore
	productStore ProductStore
}

func NewCartService(cartStore CartStore, productStore ProductStore) *CartService {
	return &CartService{
		cartStore:    cartStore,
		productStore: productStore,
	}
}

// AddItemRequest 加购请求
type AddItemRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	Quantity  int32  `json:"quantity"`
	Color     string `json:"color"`
	Size      string `json:"size"`
}

// UpdateItemRequest 改数量请求
type UpdateItemRequest struct {
	Quantity int32 `json:"quantity" binding:"required"`
}

// GetCart 获取购物车，不存在则惰性创建
func (s *CartService) GetCart(ctx context.Context, userID int64) (*model.Cart, error) {
	return s.cartStore.GetCartByUser(ctx, userID)
}

// AddItem 加购：同商品同选项(颜色/尺码)合并数量，否则追加新行
// 数量缺省或非正数时按1处理
func (s *CartService) AddItem(ctx context.Context, userID int64, req *AddItemRequest) (*model.Cart, error) {
	// 商品存在性校验
	if _, err := s.productStore.GetProductByID(ctx, req.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, e.New(e.ERROR_PRODUCT_NOT_EXISTS)
		}
		return nil, err
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	cart, err := s.cartStore.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].SameSelection(req.ProductID, req.Color, req.Size) {
			cart.Items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, model.CartItem{
			CartID:    cart.ID,
			ProductID: req.ProductID,
			Quantity:  quantity,
			Color:     req.Color,
			Size:      req.Size,
		})
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.cartStore.GetCartByUser(ctx, userID)
}

// UpdateItem 修改行数量，数量必须>=1
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID int64, req *UpdateItemRequest) (*model.Cart, error) {
	if req.Quantity < 1 {
		return nil, e.NewMsg(e.INVALID_PARAMS, "数量必须大于等于1")
	}

	cart, err := s.cartStore.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := cart.FindItem(itemID)
	if idx < 0 {
		return nil, e.New(e.ERROR_CART_ITEM_NOT_EXISTS)
	}
	cart.Items[idx].Quantity = req.Quantity

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.cartStore.GetCartByUser(ctx, userID)
}

// RemoveItem 删除单行
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID int64) (*model.Cart, error) {
	cart, err := s.cartStore.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := cart.FindItem(itemID)
	if idx < 0 {
		return nil, e.New(e.ERROR_CART_ITEM_NOT_EXISTS)
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.cartStore.GetCartByUser(ctx, userID)
}

// ClearCart 清空购物车（保留空购物车本身）
func (s *CartService) ClearCart(ctx context.Context, userID int64) (*model.Cart, error) {
	cart, err := s.cartStore.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Items = []model.CartItem{}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.cartStore.GetCartByUser(ctx, userID)
}

// save 乐观锁写回，版本冲突转成业务错误
func (s *CartService) save(ctx context.Context, cart *model.Cart) error {
	if err := s.cartStore.SaveCartItems(ctx, cart); err != nil {
		if errors.Is(err, dao.ErrCartConflict) {
			return e.New(e.ERROR_CART_CONFLICT)
		}
		return err
	}
	return nil
}
