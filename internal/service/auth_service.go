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

type AuthService struct {
	userDao UserAccountStore
	jwtUtil *utils.JWTUtil
}

func NewAuthService(userDao UserAccountStore, jwtUtil *utils.JWTUtil) *AuthService {
	return &AuthService{
		userDao: userDao,
		jwtUtil: jwtUtil,
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Name        string `json:"name" binding:"required"`
	Password    string `json:"password" binding:"required,min=6"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	UserType    string `json:"user_type"`
	Address     string `json:"address"`
	BirthDate   string `json:"birth_date"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult 登录结果：token加用户信息
type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register 注册新用户
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	userType := req.UserType
	if userType == "" {
		userType = model.UserTypeCustomer
	}
	if !model.ValidUserType(userType) {
		return nil, e.NewMsg(e.INVALID_PARAMS, "用户类型必须是customer或admin")
	}

	// 检查邮箱是否已注册
	exists, err := s.userDao.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, e.New(e.ERROR_USER_EXISTS)
	}

	// 加密密码
	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	newUser := &model.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: passwordHash,
		PhoneNumber:  req.PhoneNumber,
		UserType:     userType,
		Address:      req.Address,
	}
	if req.BirthDate != "" {
		if t, perr := time.Parse("2006-01-02", req.BirthDate); perr == nil {
			newUser.BirthDate = &t
		}
	}

	if err := s.userDao.CreateUser(ctx, newUser); err != nil {
		return nil, err
	}

	return newUser, nil
}

// Login 邮箱+密码登录，成功返回JWT
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	dbUser, err := s.userDao.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, e.New(e.ERROR_USER_NOT_EXISTS)
		}
		return nil, err
	}

	// 验证密码
	if !utils.CheckPassword(req.Password, dbUser.PasswordHash) {
		return nil, e.New(e.ERROR_PASSWORD)
	}

	// 生成 token
	token, err := s.jwtUtil.GenerateToken(dbUser.ID, dbUser.Email, dbUser.UserType)
	if err != nil {
		return nil, e.New(e.ERROR_AUTH_TOKEN)
	}

	return &LoginResult{
		Token: token,
		User:  dbUser,
	}, nil
}

// GetCurrentUser 按token里的用户ID取当前用户
func (s *AuthService) GetCurrentUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userDao.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, e.New(e.ERROR_USER_NOT_EXISTS)
		}
		return nil, err
	}
	return user, nil
}
