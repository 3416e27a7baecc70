package service

import (
	"context"
	"errors"
	"time"

	"github.com/yunn234/yunn-shoppingmall/internal/model"
	"github.com/yunn234/yunn-shoppingmall/pkg/e"
	"github.com/yunn234/yunn-shoppingmall/pkg/utils"

	"gorm.io/gorm"
)

type UserService struct {
	userDao UserAccountStore
}

func NewUserService(userDao UserAccountStore) *UserService {
	return &UserService{
		userDao: userDao,
	}
}

// UpdateUserRequest 用户信息更新请求，空字段不更新
type UpdateUserRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	BirthDate   string `json:"birth_date"`
	Password    string `json:"password"`
}

// GetUser 根据ID获取用户
func (s *UserService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	userInfo, err := s.userDao.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, e.New(e.ERROR_USER_NOT_EXISTS)
		}
		return nil, err
	}
	return userInfo, nil
}

// ListUsers 用户分页列表（管理员）
func (s *UserService) ListUsers(ctx context.Context, userType string, page, pageSize int) ([]*model.User, int64, error) {
	if userType != "" && !model.ValidUserType(userType) {
		userType = ""
	}
	return s.userDao.ListUsers(ctx, userType, page, pageSize)
}

// UpdateUser 更新用户信息，带密码时一并换密码
func (s *UserService) UpdateUser(ctx context.Context, userID int64, req *UpdateUserRequest) (*model.User, error) {
	userInfo, err := s.userDao.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, e.New(e.ERROR_USER_NOT_EXISTS)
		}
		return nil, err
	}

	// 构建更新字段
	updates := map[string]interface{}{}
	if req.Name != "" && req.Name != userInfo.Name {
		updates["name"] = req.Name
	}
	if req.PhoneNumber != "" && req.PhoneNumber != userInfo.PhoneNumber {
		updates["phone_number"] = req.PhoneNumber
	}
	if req.Address != "" && req.Address != userInfo.Address {
		updates["address"] = req.Address
	}
	if req.BirthDate != "" {
		if t, perr := time.Parse("2006-01-02", req.BirthDate); perr == nil {
			updates["birth_date"] = t
		}
	}
	if req.Password != "" {
		if len(req.Password) < 6 {
			return nil, e.NewMsg(e.INVALID_PARAMS, "密码长度至少6位")
		}
		hash, herr := utils.HashPassword(req.Password)
		if herr != nil {
			return nil, herr
		}
		updates["password_hash"] = hash
	}

	if len(updates) == 0 {
		return userInfo, nil
	}

	if err := s.userDao.UpdateUser(ctx, userID, updates); err != nil {
		return nil, err
	}

	return s.userDao.GetUserByID(ctx, userID)
}

// DeleteUser 删除用户（管理员）
func (s *UserService) DeleteUser(ctx context.Context, userID int64) error {
	err := s.userDao.DeleteUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return e.New(e.ERROR_USER_NOT_EXISTS)
		}
		return err
	}
	return nil
}
