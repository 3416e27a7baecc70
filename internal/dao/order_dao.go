package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yunn234/yunn-shoppingmall/internal/model"

	"gorm.io/gorm"
)

var ErrDuplicateOrderNumber = errors.New("订单号已存在")

type OrderDao struct {
	db *gorm.DB
}

func NewOrderDao(db *gorm.DB) *OrderDao {
	return &OrderDao{
		db: db,
	}
}

// OrderFilter 订单列表查询条件
type OrderFilter struct {
	UserID    int64
	Status    model.OrderStatus
	StartDate *time.Time
	EndDate   *time.Time
}

// InsertOrder 插入订单（含行项目），订单号撞唯一约束返回ErrDuplicateOrderNumber
func (d *OrderDao) InsertOrder(ctx context.Context, order *model.Order) error {
	err := d.db.WithContext(ctx).Create(order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyErr(err) {
			return ErrDuplicateOrderNumber
		}
		return err
	}
	return nil
}

// isDuplicateKeyErr mysql驱动未翻译成gorm.ErrDuplicatedKey时的兜底识别
func isDuplicateKeyErr(err error) bool {
	return strings.Contains(err.Error(), "Duplicate entry") || strings.Contains(err.Error(), "1062")
}

// GetOrderByID 根据ID获取订单，带行项目/商品/用户
func (d *OrderDao) GetOrderByID(ctx context.Context, orderID int64) (*model.Order, error) {
	var order model.Order
	err := d.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("User").
		First(&order, orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByNumber 根据订单号获取订单
func (d *OrderDao) GetOrderByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	var order model.Order
	err := d.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("User").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders 订单分页列表，支持用户/状态/日期范围过滤
func (d *OrderDao) ListOrders(ctx context.Context, filter OrderFilter, page, pageSize int) ([]*model.Order, int64, error) {
	var orders []*model.Order
	var total int64

	query := d.db.WithContext(ctx).Model(&model.Order{})
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.StartDate != nil {
		query = query.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("created_at <= ?", *filter.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Items").
		Preload("Items.Product").
		Preload("User").
		Order("created_at DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&orders).Error

	return orders, total, err
}

// UpdateOrder 整单保存（状态流转/配送信息更新后的持久化）
func (d *OrderDao) UpdateOrder(ctx context.Context, order *model.Order) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Items", "User").Save(order).Error
	})
}
