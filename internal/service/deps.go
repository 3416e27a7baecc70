package service

import (
	"context"

	"github.com/yunn234/yunn-shoppingmall/internal/dao"
	"github.com/yunn234/yunn-shoppingmall/internal/model"
)

// service层通过接口依赖dao与mq，便于测试时用mock替换

// ProductStore 商品读取（订单/购物车流程只读不写）
type ProductStore interface {
	GetProductByID(ctx context.Context, id int64) (*model.Product, error)
}

// CartStore 购物车读写
type CartStore interface {
	GetCartByUser(ctx context.Context, userID int64) (*model.Cart, error)
	SaveCartItems(ctx context.Context, cart *model.Cart) error
	RemoveItemsByID(ctx context.Context, userID int64, itemIDs []int64) error
}

// OrderStore 订单台账
type OrderStore interface {
	InsertOrder(ctx context.Context, order *model.Order) error
	GetOrderByID(ctx context.Context, orderID int64) (*model.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*model.Order, error)
	ListOrders(ctx context.Context, filter dao.OrderFilter, page, pageSize int) ([]*model.Order, int64, error)
	UpdateOrder(ctx context.Context, order *model.Order) error
}

// UserStore 用户读取（订单返回时补全用户引用）
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// UserAccountStore 用户账号读写，认证与用户管理共用
type UserAccountStore interface {
	UserStore
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListUsers(ctx context.Context, userType string, page, pageSize int) ([]*model.User, int64, error)
	UpdateUser(ctx context.Context, userID int64, updates map[string]interface{}) error
	DeleteUser(ctx context.Context, userID int64) error
}

// Publisher 事件发布（MQ生产者池）
type Publisher interface {
	PublishAsyncWithID(exchange, key string, body []byte, messageID string) error
}
