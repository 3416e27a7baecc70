package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yunn234/yunn-shoppingmall/internal/model"
	"github.com/yunn234/yunn-shoppingmall/pkg/logger"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	productCacheKeyTemplate = "product:%d"
	productCacheTTL         = 5 * time.Minute
)

func productCacheKey(id int64) string {
	return fmt.Sprintf(productCacheKeyTemplate, id)
}

// ProductDao 商品存取，读路径走Redis旁路缓存
type ProductDao struct {
	db    *gorm.DB
	redis redis.UniversalClient
}

// NewProductDao redis可传nil，此时退化为纯DB访问（测试场景）
func NewProductDao(db *gorm.DB, redis redis.UniversalClient) *ProductDao {
	return &ProductDao{
		db:    db,
		redis: redis,
	}
}

// CreateProduct 创建商品
func (dao *ProductDao) CreateProduct(ctx context.Context, product *model.Product) (int64, error) {
	if err := dao.db.WithContext(ctx).Create(product).Error; err != nil {
		return 0, err
	}
	return product.ID, nil
}

// GetProductByID 根据ID获取商品，优先读缓存，未命中回源DB并写缓存
func (dao *ProductDao) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	if dao.redis != nil {
		cached, err := dao.redis.Get(ctx, productCacheKey(id)).Result()
		if err == nil {
			var p model.Product
			if err := json.Unmarshal([]byte(cached), &p); err == nil {
				return &p, nil
			}
		}
	}

	var product model.Product
	if err := dao.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}

	if dao.redis != nil {
		if data, err := json.Marshal(&product); err == nil {
			if err := dao.redis.Set(ctx, productCacheKey(id), data, productCacheTTL).Err(); err != nil {
				logger.Warn("写商品缓存失败", "product_id", id, "err", err)
			}
		}
	}

	return &product, nil
}

// ProductCodeExists 检查商品编码是否已存在
func (dao *ProductDao) ProductCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := dao.db.WithContext(ctx).Model(&model.Product{}).Where("product_code = ?", code).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListProducts 商品列表，支持分类/状态/名称模糊过滤与分页
func (dao *ProductDao) ListProducts(ctx context.Context, category, status, name string, page, pageSize int) ([]*model.Product, int64, error) {
	var products []*model.Product
	var total int64

	query := dao.db.WithContext(ctx).Model(&model.Product{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Limit(pageSize).Offset(offset).Find(&products).Error
	return products, total, err
}

// UpdateProduct 更新商品并失效缓存
func (dao *ProductDao) UpdateProduct(ctx context.Context, id int64, updates map[string]interface{}) error {
	result := dao.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	dao.invalidate(ctx, id)
	return nil
}

// DeleteProduct 删除商品并失效缓存
func (dao *ProductDao) DeleteProduct(ctx context.Context, id int64) error {
	result := dao.db.WithContext(ctx).Delete(&model.Product{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	dao.invalidate(ctx, id)
	return nil
}

// invalidate 删除缓存键，失败只告警不影响主流程
func (dao *ProductDao) invalidate(ctx context.Context, id int64) {
	if dao.redis == nil {
		return
	}
	if err := dao.redis.Del(ctx, productCacheKey(id)).Err(); err != nil {
		logger.Warn("商品缓存失效失败", "product_id", id, "err", err)
	}
}
