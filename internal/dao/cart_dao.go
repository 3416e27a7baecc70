package dao

import (
	"context"
	"errors"

	"github.com/yunn234/yunn-shoppingmall/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCartConflict = errors.New("购物车版本冲突")

type CartDao struct {
	db *gorm.DB
}

func NewCartDao(db *gorm.DB) *CartDao {
	return &CartDao{db: db}
}

// GetCartByUser 获取用户购物车，不存在则惰性创建一张空的
// 并发首次访问可能同时插入，撞user_id唯一约束后重读即可
func (dao *CartDao) GetCartByUser(ctx context.Context, userID int64) (*model.Cart, error) {
	var cart model.Cart
	err := dao.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.created_at ASC") }).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = model.Cart{UserID: userID, Items: []model.CartItem{}}
	if createErr := dao.db.WithContext(ctx).Create(&cart).Error; createErr != nil {
		// 并发首次访问同时建车：撞user_id唯一约束时改为读已有的车
		if errors.Is(createErr, gorm.ErrDuplicatedKey) || isDuplicateKeyErr(createErr) {
			return dao.GetCartByUser(ctx, userID)
		}
		return nil, createErr
	}
	return &cart, nil
}

// SaveCartItems 乐观锁写回：版本号不匹配说明购物车被并发修改，返回ErrCartConflict
// 同一事务内先抢版本号再整体替换行项目，保证读取-修改-写回的原子性
func (dao *CartDao) SaveCartItems(ctx context.Context, cart *model.Cart) error {
	return dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Cart{}).
			Where("id = ? AND version = ?", cart.ID, cart.Version).
			Update("version", cart.Version+1)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCartConflict
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}

		if len(cart.Items) > 0 {
			items := make([]model.CartItem, len(cart.Items))
			for i, item := range cart.Items {
				items[i] = model.CartItem{
					ID:        item.ID,
					CartID:    cart.ID,
					ProductID: item.ProductID,
					Quantity:  item.Quantity,
					Color:     item.Color,
					Size:      item.Size,
				}
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&items).Error; err != nil {
				return err
			}
			cart.Items = items
		}

		cart.Version++
		return nil
	})
}

// RemoveItemsByID 按行ID删除购物车行，幂等：行已不存在视为成功
// 供下单后清理失败时的对账任务重放使用
func (dao *CartDao) RemoveItemsByID(ctx context.Context, userID int64, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart model.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Where("cart_id = ? AND id IN ?", cart.ID, itemIDs).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		// 版本号同步推进，让并发中的乐观锁写回感知到变更
		return tx.Model(&model.Cart{}).Where("id = ?", cart.ID).
			Update("version", gorm.Expr("version + 1")).Error
	})
}
