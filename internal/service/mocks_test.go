package service

import (
	"context"

	"github.com/yunn234/yunn-shoppingmall/internal/client/payment"
	"github.com/yunn234/yunn-shoppingmall/internal/dao"
	"github.com/yunn234/yunn-shoppingmall/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) InsertOrder(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderStore) GetOrderByID(ctx context.Context, orderID int64) (*model.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderStore) GetOrderByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderStore) ListOrders(ctx context.Context, filter dao.OrderFilter, page, pageSize int) ([]*model.Order, int64, error) {
	args := m.Called(ctx, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderStore) UpdateOrder(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

type MockCartStore struct {
	mock.Mock
}

func (m *MockCartStore) GetCartByUser(ctx context.Context, userID int64) (*model.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartStore) SaveCartItems(ctx context.Context, cart *model.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *MockCartStore) RemoveItemsByID(ctx context.Context, userID int64, itemIDs []int64) error {
	args := m.Called(ctx, userID, itemIDs)
	return args.Error(0)
}

type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockUserAccountStore struct {
	MockUserStore
}

func (m *MockUserAccountStore) CreateUser(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserAccountStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserAccountStore) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserAccountStore) ListUsers(ctx context.Context, userType string, page, pageSize int) ([]*model.User, int64, error) {
	args := m.Called(ctx, userType, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserAccountStore) UpdateUser(ctx context.Context, userID int64, updates map[string]interface{}) error {
	args := m.Called(ctx, userID, updates)
	return args.Error(0)
}

func (m *MockUserAccountStore) DeleteUser(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishAsyncWithID(exchange, key string, body []byte, messageID string) error {
	args := m.Called(exchange, key, body, messageID)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) GetTransaction(ctx context.Context, impUID string) (*payment.Transaction, error) {
	args := m.Called(ctx, impUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}
