package dao

import (
	"context"

	"github.com/yunn234/yunn-shoppingmall/internal/model"

	"gorm.io/gorm"
)

type UserDao struct {
	db *gorm.DB
}

// NewUserDao 构造函数（依赖注入）
func NewUserDao(db *gorm.DB) *UserDao {
	return &UserDao{db: db}
}

// CreateUser 创建用户
func (dao *UserDao) CreateUser(ctx context.Context, user *model.User) error {
	return dao.db.WithContext(ctx).Create(user).Error
}

// GetUserByID 根据用户ID获取用户
func (dao *UserDao) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := dao.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail 根据邮箱查询用户
func (dao *UserDao) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := dao.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailExists 检查邮箱是否已注册
func (dao *UserDao) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := dao.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListUsers 按用户类型过滤的分页用户列表
func (dao *UserDao) ListUsers(ctx context.Context, userType string, page, pageSize int) ([]*model.User, int64, error) {
	var users []*model.User
	var total int64

	query := dao.db.WithContext(ctx).Model(&model.User{})
	if userType != "" {
		query = query.Where("user_type = ?", userType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Limit(pageSize).Offset(offset).Find(&users).Error
	return users, total, err
}

// UpdateUser 按字段更新用户信息
func (dao *UserDao) UpdateUser(ctx context.Context, userID int64, updates map[string]interface{}) error {
	return dao.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(updates).Error
}

// DeleteUser 删除用户
func (dao *UserDao) DeleteUser(ctx context.Context, userID int64) error {
	result := dao.db.WithContext(ctx).Delete(&model.User{}, userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
