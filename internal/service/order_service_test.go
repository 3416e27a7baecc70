package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yunn234/yunn-shoppingmall/config"
	"github.com/yunn234/yunn-shoppingmall/internal/client/payment"
	"github.com/yunn234/yunn-shoppingmall/internal/dao"
	"github.com/yunn234/yunn-shoppingmall/internal/model"
	"github.com/yunn234/yunn-shoppingmall/internal/mq"
	"github.com/yunn234/yunn-shoppingmall/pkg/e"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testPaymentConfig(leniency bool) *config.PaymentConfig {
	return &config.PaymentConfig{
		BaseURL:         "https://api.iamport.kr",
		TimeoutMs:       3000,
		SandboxLeniency: leniency,
	}
}

func newTestOrderService(
	orderStore *MockOrderStore,
	cartStore *MockCartStore,
	productStore *MockProductStore,
	gateway *MockGateway,
	publisher *MockPublisher,
	leniency bool,
) *OrderService {
	var gw payment.Gateway
	if gateway != nil {
		gw = gateway
	}
	var pub Publisher
	if publisher != nil {
		pub = publisher
	}
	return NewOrderService(orderStore, cartStore, productStore, &MockUserStore{}, gw, nil, pub, testPaymentConfig(leniency))
}

func testCart(items ...model.CartItem) *model.Cart {
	return &model.Cart{ID: 1, UserID: 100, Version: 3, Items: items}
}

func testProduct(id int64, price int64) *model.Product {
	return &model.Product{
		ID:          id,
		ProductCode: "TS001",
		Name:        "无地T恤",
		Price:       price,
		Category:    model.CategoryTop,
		Images:      model.ImageList{"https://cdn.example.com/ts001.jpg"},
		Status:      model.ProductOnSale,
	}
}

func validPlaceOrderRequest(total int64) *PlaceOrderRequest {
	return &PlaceOrderRequest{
		Shipping: ShippingRequest{
			RecipientName:  "金哲秀",
			RecipientPhone: "010-1234-5678",
			Address:        "首尔特别市江南区",
		},
		Payment: PaymentRequest{
			Method:      "card",
			TotalAmount: total,
		},
	}
}

func TestPlaceOrder(t *testing.T) {
	tests := []struct {
		name         string
		req          *PlaceOrderRequest
		leniency     bool
		setup        func(*MockOrderStore, *MockCartStore, *MockProductStore, *MockGateway, *MockPublisher)
		wantCode     int
		checkSuccess func(*testing.T, *model.Order)
	}{
		{
			// 29_900*2=59_800, 运费2_500, 总额62_300
			name: "整车下单成功，小计未满额收运费",
			req:  validPlaceOrderRequest(62300),
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				cs.On("GetCartByUser", mock.Anything, int64(100)).
					Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2, Color: "black", Size: "L"}), nil)
				ps.On("GetProductByID", mock.Anything, int64(7)).Return(testProduct(7, 29900), nil)
				os.On("InsertOrder", mock.Anything, mock.AnythingOfType("*model.Order")).
					Return(nil).Run(func(args mock.Arguments) {
						args.Get(1).(*model.Order).ID = 1001
					})
				cs.On("RemoveItemsByID", mock.Anything, int64(100), []int64{11}).Return(nil)
				pub.On("PublishAsyncWithID", mq.Exchange, mq.KeyOrderCreated, mock.Anything, mock.Anything).Return(nil)
				os.On("GetOrderByID", mock.Anything, int64(1001)).
					Return(&model.Order{ID: 1001, UserID: 100, TotalAmount: 62300}, nil)
			},
			checkSuccess: func(t *testing.T, order *model.Order) {
				assert.Equal(t, int64(62300), order.TotalAmount)
			},
		},
		{
			// 30_000*3=90_000 >= 70_000 免运费
			name: "满额免运费",
			req:  validPlaceOrderRequest(90000),
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				cs.On("GetCartByUser", mock.Anything, int64(100)).
					Return(testCart(model.CartItem{ID: 12, CartID: 1, ProductID: 8, Quantity: 3}), nil)
				ps.On("GetProductByID", mock.Anything, int64(8)).Return(testProduct(8, 30000), nil)
				os.On("InsertOrder", mock.Anything, mock.AnythingOfType("*model.Order")).
					Return(nil).Run(func(args mock.Arguments) {
						order := args.Get(1).(*model.Order)
						order.ID = 1002
						assert.Equal(t, int64(0), order.Shipping.ShippingFee)
						assert.Equal(t, int64(90000), order.Subtotal)
					})
				cs.On("RemoveItemsByID", mock.Anything, int64(100), []int64{12}).Return(nil)
				pub.On("PublishAsyncWithID", mq.Exchange, mq.KeyOrderCreated, mock.Anything, mock.Anything).Return(nil)
				os.On("GetOrderByID", mock.Anything, int64(1002)).
					Return(&model.Order{ID: 1002, UserID: 100, TotalAmount: 90000}, nil)
			},
			checkSuccess: func(t *testing.T, order *model.Order) {
				assert.Equal(t, int64(90000), order.TotalAmount)
			},
		},
		{
			name: "声明金额与重算结果不一致",
			req:  validPlaceOrderRequest(50000),
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				cs.On("GetCartByUser", mock.Anything, int64(100)).
					Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2}), nil)
				ps.On("GetProductByID", mock.Anything, int64(7)).Return(testProduct(7, 29900), nil)
			},
			wantCode: e.ERROR_ORDER_AMOUNT_MISMATCH,
		},
		{
			name: "空购物车下单",
			req:  validPlaceOrderRequest(0),
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				cs.On("GetCartByUser", mock.Anything, int64(100)).Return(testCart(), nil)
			},
			wantCode: e.ERROR_CART_EMPTY,
		},
		{
			name: "指定结算行全不在购物车按空车处理",
			req: func() *PlaceOrderRequest {
				req := validPlaceOrderRequest(62300)
				req.CartItemIDs = []int64{99}
				return req
			}(),
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				cs.On("GetCartByUser", mock.Anything, int64(100)).
					Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2}), nil)
			},
			wantCode: e.ERROR_CART_EMPTY,
		},
		{
			name: "商品已下架",
			req:  validPlaceOrderRequest(62300),
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				discontinued := testProduct(7, 29900)
				discontinued.Status = model.ProductDiscontinued
				cs.On("GetCartByUser", mock.Anything, int64(100)).
					Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2}), nil)
				ps.On("GetProductByID", mock.Anything, int64(7)).Return(discontinued, nil)
			},
			wantCode: e.ERROR_PRODUCT_NOT_ON_SALE,
		},
		{
			name: "缺少收货人信息",
			req: &PlaceOrderRequest{
				Payment: PaymentRequest{Method: "card"},
			},
			setup:    func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {},
			wantCode: e.INVALID_PARAMS,
		},
		{
			name: "缺少支付方式",
			req: &PlaceOrderRequest{
				Shipping: ShippingRequest{RecipientName: "金哲秀", RecipientPhone: "010-1234-5678", Address: "首尔"},
			},
			setup:    func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {},
			wantCode: e.INVALID_PARAMS,
		},
		{
			name: "网关金额与订单金额不一致",
			req: func() *PlaceOrderRequest {
				req := validPlaceOrderRequest(62300)
				req.Payment.Status = "paid"
				req.Payment.ImpUID = "imp_123"
				return req
			}(),
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				cs.On("GetCartByUser", mock.Anything, int64(100)).
					Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2}), nil)
				ps.On("GetProductByID", mock.Anything, int64(7)).Return(testProduct(7, 29900), nil)
				gw.On("GetTransaction", mock.Anything, "imp_123").
					Return(&payment.Transaction{ImpUID: "imp_123", Status: payment.StatusPaid, Amount: 99999}, nil)
			},
			wantCode: e.ERROR_PAYMENT_MISMATCH,
		},
		{
			name: "声明已支付但网关交易未支付",
			req: func() *PlaceOrderRequest {
				req := validPlaceOrderRequest(62300)
				req.Payment.Status = "paid"
				req.Payment.ImpUID = "imp_123"
				return req
			}(),
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				cs.On("GetCartByUser", mock.Anything, int64(100)).
					Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2}), nil)
				ps.On("GetProductByID", mock.Anything, int64(7)).Return(testProduct(7, 29900), nil)
				gw.On("GetTransaction", mock.Anything, "imp_123").
					Return(&payment.Transaction{ImpUID: "imp_123", Status: "ready", Amount: 62300}, nil)
			},
			wantCode: e.ERROR_PAYMENT_MISMATCH,
		},
		{
			name: "沙箱模式下网关查无交易放行",
			req: func() *PlaceOrderRequest {
				req := validPlaceOrderRequest(62300)
				req.Payment.Status = "paid"
				req.Payment.ImpUID = "imp_missing"
				return req
			}(),
			leniency: true,
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				cs.On("GetCartByUser", mock.Anything, int64(100)).
					Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2}), nil)
				ps.On("GetProductByID", mock.Anything, int64(7)).Return(testProduct(7, 29900), nil)
				gw.On("GetTransaction", mock.Anything, "imp_missing").
					Return(nil, payment.ErrTransactionNotFound)
				os.On("InsertOrder", mock.Anything, mock.AnythingOfType("*model.Order")).
					Return(nil).Run(func(args mock.Arguments) {
						args.Get(1).(*model.Order).ID = 1003
					})
				cs.On("RemoveItemsByID", mock.Anything, int64(100), []int64{11}).Return(nil)
				pub.On("PublishAsyncWithID", mq.Exchange, mq.KeyOrderCreated, mock.Anything, mock.Anything).Return(nil)
				os.On("GetOrderByID", mock.Anything, int64(1003)).
					Return(&model.Order{ID: 1003, UserID: 100, TotalAmount: 62300}, nil)
			},
			checkSuccess: func(t *testing.T, order *model.Order) {
				assert.Equal(t, int64(1003), order.ID)
			},
		},
		{
			name: "生产模式下网关查无交易拒单",
			req: func() *PlaceOrderRequest {
				req := validPlaceOrderRequest(62300)
				req.Payment.Status = "paid"
				req.Payment.ImpUID = "imp_missing"
				return req
			}(),
			leniency: false,
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				cs.On("GetCartByUser", mock.Anything, int64(100)).
					Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2}), nil)
				ps.On("GetProductByID", mock.Anything, int64(7)).Return(testProduct(7, 29900), nil)
				gw.On("GetTransaction", mock.Anything, "imp_missing").
					Return(nil, payment.ErrTransactionNotFound)
			},
			wantCode: e.ERROR_PAYMENT_GATEWAY,
		},
		{
			// 虚拟账户等待入金：带交易号但未声明已支付，不走网关核验
			name: "待支付声明携带交易号不触发核验",
			req: func() *PlaceOrderRequest {
				req := validPlaceOrderRequest(62300)
				req.Payment.ImpUID = "imp_vbank"
				return req
			}(),
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				cs.On("GetCartByUser", mock.Anything, int64(100)).
					Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2}), nil)
				ps.On("GetProductByID", mock.Anything, int64(7)).Return(testProduct(7, 29900), nil)
				os.On("InsertOrder", mock.Anything, mock.AnythingOfType("*model.Order")).
					Return(nil).Run(func(args mock.Arguments) {
						order := args.Get(1).(*model.Order)
						order.ID = 1006
						assert.Equal(t, model.OrderReceived, order.Status)
						assert.Equal(t, model.PaymentPending, order.Payment.Status)
						assert.Nil(t, order.Payment.PaidAt)
					})
				cs.On("RemoveItemsByID", mock.Anything, int64(100), []int64{11}).Return(nil)
				pub.On("PublishAsyncWithID", mq.Exchange, mq.KeyOrderCreated, mock.Anything, mock.Anything).Return(nil)
				os.On("GetOrderByID", mock.Anything, int64(1006)).
					Return(&model.Order{ID: 1006, UserID: 100, Status: model.OrderReceived}, nil)
			},
			checkSuccess: func(t *testing.T, order *model.Order) {
				assert.Equal(t, model.OrderReceived, order.Status)
			},
		},
		{
			// 声明已支付但没有交易号：无从核验，订单保持待支付
			name: "声明已支付但无交易号不升级状态",
			req: func() *PlaceOrderRequest {
				req := validPlaceOrderRequest(62300)
				req.Payment.Status = "paid"
				return req
			}(),
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				cs.On("GetCartByUser", mock.Anything, int64(100)).
					Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2}), nil)
				ps.On("GetProductByID", mock.Anything, int64(7)).Return(testProduct(7, 29900), nil)
				os.On("InsertOrder", mock.Anything, mock.AnythingOfType("*model.Order")).
					Return(nil).Run(func(args mock.Arguments) {
						order := args.Get(1).(*model.Order)
						order.ID = 1007
						assert.Equal(t, model.OrderReceived, order.Status)
						assert.Equal(t, model.PaymentPending, order.Payment.Status)
					})
				cs.On("RemoveItemsByID", mock.Anything, int64(100), []int64{11}).Return(nil)
				pub.On("PublishAsyncWithID", mq.Exchange, mq.KeyOrderCreated, mock.Anything, mock.Anything).Return(nil)
				os.On("GetOrderByID", mock.Anything, int64(1007)).
					Return(&model.Order{ID: 1007, UserID: 100, Status: model.OrderReceived}, nil)
			},
			checkSuccess: func(t *testing.T, order *model.Order) {
				assert.Equal(t, model.OrderReceived, order.Status)
			},
		},
		{
			name: "网关核验通过订单升级为已确认支付",
			req: func() *PlaceOrderRequest {
				req := validPlaceOrderRequest(62300)
				req.Payment.Status = "paid"
				req.Payment.ImpUID = "imp_123"
				return req
			}(),
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				cs.On("GetCartByUser", mock.Anything, int64(100)).
					Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2}), nil)
				ps.On("GetProductByID", mock.Anything, int64(7)).Return(testProduct(7, 29900), nil)
				gw.On("GetTransaction", mock.Anything, "imp_123").
					Return(&payment.Transaction{ImpUID: "imp_123", Status: payment.StatusPaid, Amount: 62300}, nil)
				os.On("InsertOrder", mock.Anything, mock.AnythingOfType("*model.Order")).
					Return(nil).Run(func(args mock.Arguments) {
						order := args.Get(1).(*model.Order)
						order.ID = 1008
						assert.Equal(t, model.OrderPaymentConfirmed, order.Status)
						assert.Equal(t, model.PaymentPaid, order.Payment.Status)
						assert.NotNil(t, order.Payment.PaidAt)
					})
				cs.On("RemoveItemsByID", mock.Anything, int64(100), []int64{11}).Return(nil)
				pub.On("PublishAsyncWithID", mq.Exchange, mq.KeyOrderCreated, mock.Anything, mock.Anything).Return(nil)
				os.On("GetOrderByID", mock.Anything, int64(1008)).
					Return(&model.Order{ID: 1008, UserID: 100, Status: model.OrderPaymentConfirmed}, nil)
			},
			checkSuccess: func(t *testing.T, order *model.Order) {
				assert.Equal(t, model.OrderPaymentConfirmed, order.Status)
			},
		},
		{
			name: "订单号碰撞重试一次后成功",
			req:  validPlaceOrderRequest(62300),
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				cs.On("GetCartByUser", mock.Anything, int64(100)).
					Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2}), nil)
				ps.On("GetProductByID", mock.Anything, int64(7)).Return(testProduct(7, 29900), nil)
				os.On("InsertOrder", mock.Anything, mock.AnythingOfType("*model.Order")).
					Return(dao.ErrDuplicateOrderNumber).Once()
				os.On("InsertOrder", mock.Anything, mock.AnythingOfType("*model.Order")).
					Return(nil).Once().Run(func(args mock.Arguments) {
						args.Get(1).(*model.Order).ID = 1004
					})
				cs.On("RemoveItemsByID", mock.Anything, int64(100), []int64{11}).Return(nil)
				pub.On("PublishAsyncWithID", mq.Exchange, mq.KeyOrderCreated, mock.Anything, mock.Anything).Return(nil)
				os.On("GetOrderByID", mock.Anything, int64(1004)).
					Return(&model.Order{ID: 1004, UserID: 100, TotalAmount: 62300}, nil)
			},
			checkSuccess: func(t *testing.T, order *model.Order) {
				assert.Equal(t, int64(1004), order.ID)
			},
		},
		{
			name: "订单号连续碰撞两次放弃",
			req:  validPlaceOrderRequest(62300),
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				cs.On("GetCartByUser", mock.Anything, int64(100)).
					Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2}), nil)
				ps.On("GetProductByID", mock.Anything, int64(7)).Return(testProduct(7, 29900), nil)
				os.On("InsertOrder", mock.Anything, mock.AnythingOfType("*model.Order")).
					Return(dao.ErrDuplicateOrderNumber).Twice()
			},
			wantCode: e.ERROR_ORDER_NUMBER_CONFLICT,
		},
		{
			name: "购物车清理失败不影响下单结果",
			req:  validPlaceOrderRequest(62300),
			setup: func(os *MockOrderStore, cs *MockCartStore, ps *MockProductStore, gw *MockGateway, pub *MockPublisher) {
				cs.On("GetCartByUser", mock.Anything, int64(100)).
					Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2}), nil)
				ps.On("GetProductByID", mock.Anything, int64(7)).Return(testProduct(7, 29900), nil)
				os.On("InsertOrder", mock.Anything, mock.AnythingOfType("*model.Order")).
					Return(nil).Run(func(args mock.Arguments) {
						args.Get(1).(*model.Order).ID = 1005
					})
				cs.On("RemoveItemsByID", mock.Anything, int64(100), []int64{11}).
					Return(errors.New("数据库连接中断"))
				pub.On("PublishAsyncWithID", mq.Exchange, mq.KeyOrderCreated, mock.Anything, mock.Anything).Return(nil)
				os.On("GetOrderByID", mock.Anything, int64(1005)).
					Return(&model.Order{ID: 1005, UserID: 100, TotalAmount: 62300}, nil)
			},
			checkSuccess: func(t *testing.T, order *model.Order) {
				assert.Equal(t, int64(1005), order.ID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderStore := &MockOrderStore{}
			cartStore := &MockCartStore{}
			productStore := &MockProductStore{}
			gateway := &MockGateway{}
			publisher := &MockPublisher{}
			tt.setup(orderStore, cartStore, productStore, gateway, publisher)

			svc := newTestOrderService(orderStore, cartStore, productStore, gateway, publisher, tt.leniency)
			order, err := svc.PlaceOrder(context.Background(), 100, tt.req)

			if tt.wantCode != 0 {
				assert.Error(t, err)
				assert.Nil(t, order)
				assert.Equal(t, tt.wantCode, e.CodeOf(err))
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, order)
				if tt.checkSuccess != nil {
					tt.checkSuccess(t, order)
				}
			}
			orderStore.AssertExpectations(t)
			cartStore.AssertExpectations(t)
			productStore.AssertExpectations(t)
			gateway.AssertExpectations(t)
		})
	}
}

func TestPlaceOrderDiscountArithmetic(t *testing.T) {
	orderStore := &MockOrderStore{}
	cartStore := &MockCartStore{}
	productStore := &MockProductStore{}

	cartStore.On("GetCartByUser", mock.Anything, int64(100)).
		Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2, Color: "black", Size: "L"}), nil)
	productStore.On("GetProductByID", mock.Anything, int64(7)).Return(testProduct(7, 29900), nil)
	orderStore.On("InsertOrder", mock.Anything, mock.AnythingOfType("*model.Order")).
		Return(nil).Run(func(args mock.Arguments) {
			order := args.Get(1).(*model.Order)
			order.ID = 2001
			// 59_800 + 2_500 - 3_000 - 500 = 58_800
			assert.Equal(t, int64(59800), order.Subtotal)
			assert.Equal(t, int64(2500), order.Shipping.ShippingFee)
			assert.Equal(t, int64(58800), order.TotalAmount)
			assert.Equal(t, model.OrderReceived, order.Status)
			// 行项目快照应带上商品名、编码与首图
			if assert.Len(t, order.Items, 1) {
				assert.Equal(t, "无地T恤", order.Items[0].ProductName)
				assert.Equal(t, "TS001", order.Items[0].ProductCode)
				assert.Equal(t, "https://cdn.example.com/ts001.jpg", order.Items[0].Image)
				assert.Equal(t, int64(29900), order.Items[0].Price)
			}
		})
	cartStore.On("RemoveItemsByID", mock.Anything, int64(100), []int64{11}).Return(nil)
	orderStore.On("GetOrderByID", mock.Anything, int64(2001)).
		Return(&model.Order{ID: 2001, UserID: 100, TotalAmount: 58800}, nil)

	svc := newTestOrderService(orderStore, cartStore, productStore, nil, nil, false)
	req := validPlaceOrderRequest(58800)
	req.Discount = DiscountRequest{CouponDiscount: 3000, PointUsed: 500, CouponCode: "WELCOME"}

	order, err := svc.PlaceOrder(context.Background(), 100, req)
	assert.NoError(t, err)
	assert.Equal(t, int64(58800), order.TotalAmount)
	orderStore.AssertExpectations(t)
}

func TestPlaceOrderSubsetSelection(t *testing.T) {
	orderStore := &MockOrderStore{}
	cartStore := &MockCartStore{}
	productStore := &MockProductStore{}

	cart := testCart(
		model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 1},
		model.CartItem{ID: 12, CartID: 1, ProductID: 8, Quantity: 1},
	)
	cartStore.On("GetCartByUser", mock.Anything, int64(100)).Return(cart, nil)
	productStore.On("GetProductByID", mock.Anything, int64(8)).Return(testProduct(8, 30000), nil)
	orderStore.On("InsertOrder", mock.Anything, mock.AnythingOfType("*model.Order")).
		Return(nil).Run(func(args mock.Arguments) {
			order := args.Get(1).(*model.Order)
			order.ID = 2002
			assert.Len(t, order.Items, 1)
			assert.Equal(t, int64(8), order.Items[0].ProductID)
		})
	// 只移除被结算的行，未结算的行留在购物车里
	cartStore.On("RemoveItemsByID", mock.Anything, int64(100), []int64{12}).Return(nil)
	orderStore.On("GetOrderByID", mock.Anything, int64(2002)).
		Return(&model.Order{ID: 2002, UserID: 100}, nil)

	svc := newTestOrderService(orderStore, cartStore, productStore, nil, nil, false)
	req := validPlaceOrderRequest(32500)
	req.CartItemIDs = []int64{12}

	_, err := svc.PlaceOrder(context.Background(), 100, req)
	assert.NoError(t, err)
	cartStore.AssertExpectations(t)
	// 未被圈定的商品不应被读取
	productStore.AssertNotCalled(t, "GetProductByID", mock.Anything, int64(7))
}

func TestPlaceOrderSubsetIgnoresStaleIDs(t *testing.T) {
	orderStore := &MockOrderStore{}
	cartStore := &MockCartStore{}
	productStore := &MockProductStore{}

	// ID 999 已不在购物车(如另一端已结算)，按交集只结算还存在的行
	cartStore.On("GetCartByUser", mock.Anything, int64(100)).
		Return(testCart(model.CartItem{ID: 11, CartID: 1, ProductID: 7, Quantity: 2}), nil)
	productStore.On("GetProductByID", mock.Anything, int64(7)).Return(testProduct(7, 29900), nil)
	orderStore.On("InsertOrder", mock.Anything, mock.AnythingOfType("*model.Order")).
		Return(nil).Run(func(args mock.Arguments) {
			order := args.Get(1).(*model.Order)
			order.ID = 2003
			if assert.Len(t, order.Items, 1) {
				assert.Equal(t, int64(7), order.Items[0].ProductID)
			}
		})
	cartStore.On("RemoveItemsByID", mock.Anything, int64(100), []int64{11}).Return(nil)
	orderStore.On("GetOrderByID", mock.Anything, int64(2003)).
		Return(&model.Order{ID: 2003, UserID: 100, TotalAmount: 62300}, nil)

	svc := newTestOrderService(orderStore, cartStore, productStore, nil, nil, false)
	req := validPlaceOrderRequest(62300)
	req.CartItemIDs = []int64{11, 999}

	order, err := svc.PlaceOrder(context.Background(), 100, req)
	assert.NoError(t, err)
	assert.Equal(t, int64(2003), order.ID)
	cartStore.AssertExpectations(t)
	orderStore.AssertExpectations(t)
}

func TestGetOrderOwnership(t *testing.T) {
	order := &model.Order{ID: 1, UserID: 100, OrderNumber: "202501151030001234"}

	tests := []struct {
		name        string
		requesterID int64
		isAdmin     bool
		wantCode    int
	}{
		{name: "归属人可见", requesterID: 100},
		{name: "管理员可见", requesterID: 999, isAdmin: true},
		{name: "其他用户被拒绝", requesterID: 200, wantCode: e.ERROR_FORBIDDEN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderStore := &MockOrderStore{}
			orderStore.On("GetOrderByID", mock.Anything, int64(1)).Return(order, nil)
			svc := newTestOrderService(orderStore, &MockCartStore{}, &MockProductStore{}, nil, nil, false)

			got, err := svc.GetOrder(context.Background(), 1, tt.requesterID, tt.isAdmin)
			if tt.wantCode != 0 {
				assert.Equal(t, tt.wantCode, e.CodeOf(err))
				assert.Nil(t, got)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, order.OrderNumber, got.OrderNumber)
			}
		})
	}
}

func TestCancelOrder(t *testing.T) {
	tests := []struct {
		name          string
		status        model.OrderStatus
		paymentStatus model.PaymentStatus
		requesterID   int64
		isAdmin       bool
		wantCode      int
		wantPayStatus model.PaymentStatus
	}{
		{name: "接收状态归属人可取消", status: model.OrderReceived, paymentStatus: model.PaymentPending, requesterID: 100, wantPayStatus: model.PaymentPending},
		{name: "已支付订单取消转退款处理中", status: model.OrderPaymentConfirmed, paymentStatus: model.PaymentPaid, requesterID: 100, wantPayStatus: model.PaymentRefundPending},
		{name: "备货中管理员可取消", status: model.OrderPreparing, paymentStatus: model.PaymentPaid, requesterID: 999, isAdmin: true, wantPayStatus: model.PaymentRefundPending},
		{name: "配送中不可取消", status: model.OrderShipping, paymentStatus: model.PaymentPaid, requesterID: 100, wantCode: e.ERROR_ORDER_INVALID_STATE},
		{name: "已送达不可取消", status: model.OrderDelivered, paymentStatus: model.PaymentPaid, requesterID: 100, wantCode: e.ERROR_ORDER_INVALID_STATE},
		{name: "已取消不可重复取消", status: model.OrderCancelled, paymentStatus: model.PaymentPending, requesterID: 100, wantCode: e.ERROR_ORDER_INVALID_STATE},
		{name: "其他用户无权取消", status: model.OrderReceived, paymentStatus: model.PaymentPending, requesterID: 200, wantCode: e.ERROR_FORBIDDEN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderStore := &MockOrderStore{}
			publisher := &MockPublisher{}
			order := &model.Order{
				ID:     1,
				UserID: 100,
				Status: tt.status,
				Payment: model.Payment{
					Method: model.PayMethodCard,
					Status: tt.paymentStatus,
				},
			}
			orderStore.On("GetOrderByID", mock.Anything, int64(1)).Return(order, nil)
			if tt.wantCode == 0 {
				orderStore.On("UpdateOrder", mock.Anything, order).Return(nil)
				publisher.On("PublishAsyncWithID", mq.Exchange, mq.KeyOrderCancelled, mock.Anything, mock.Anything).Return(nil)
			}

			svc := newTestOrderService(orderStore, &MockCartStore{}, &MockProductStore{}, nil, publisher, false)
			got, err := svc.CancelOrder(context.Background(), 1, tt.requesterID, tt.isAdmin)

			if tt.wantCode != 0 {
				assert.Equal(t, tt.wantCode, e.CodeOf(err))
			} else {
				assert.NoError(t, err)
				assert.Equal(t, model.OrderCancelled, got.Status)
				assert.Equal(t, tt.wantPayStatus, got.Payment.Status)
			}
			orderStore.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	t.Run("非管理员不能向前推进状态", func(t *testing.T) {
		svc := newTestOrderService(&MockOrderStore{}, &MockCartStore{}, &MockProductStore{}, nil, nil, false)
		_, err := svc.UpdateStatus(context.Background(), 1, 100, false, &UpdateStatusRequest{Status: "shipping"})
		assert.Equal(t, e.ERROR_FORBIDDEN, e.CodeOf(err))
	})

	t.Run("无效状态值被拒绝", func(t *testing.T) {
		svc := newTestOrderService(&MockOrderStore{}, &MockCartStore{}, &MockProductStore{}, nil, nil, false)
		_, err := svc.UpdateStatus(context.Background(), 1, 999, true, &UpdateStatusRequest{Status: "teleported"})
		assert.Equal(t, e.INVALID_PARAMS, e.CodeOf(err))
	})

	t.Run("管理员推进至配送中并盖发货时间戳", func(t *testing.T) {
		orderStore := &MockOrderStore{}
		order := &model.Order{ID: 1, UserID: 100, Status: model.OrderPreparing}
		orderStore.On("GetOrderByID", mock.Anything, int64(1)).Return(order, nil)
		orderStore.On("UpdateOrder", mock.Anything, order).Return(nil)

		svc := newTestOrderService(orderStore, &MockCartStore{}, &MockProductStore{}, nil, nil, false)
		got, err := svc.UpdateStatus(context.Background(), 1, 999, true,
			&UpdateStatusRequest{Status: "shipping", AdminMemo: "CJ大韩通运发货"})

		assert.NoError(t, err)
		assert.Equal(t, model.OrderShipping, got.Status)
		assert.NotNil(t, got.Shipping.ShippedAt)
		assert.Equal(t, "CJ大韩通运发货", got.AdminMemo)
	})

	t.Run("终态订单不可流转", func(t *testing.T) {
		orderStore := &MockOrderStore{}
		order := &model.Order{ID: 1, UserID: 100, Status: model.OrderRefunded}
		orderStore.On("GetOrderByID", mock.Anything, int64(1)).Return(order, nil)

		svc := newTestOrderService(orderStore, &MockCartStore{}, &MockProductStore{}, nil, nil, false)
		_, err := svc.UpdateStatus(context.Background(), 1, 999, true, &UpdateStatusRequest{Status: "delivered"})
		assert.Equal(t, e.ERROR_ORDER_INVALID_STATE, e.CodeOf(err))
	})
}

func TestListMyOrders(t *testing.T) {
	orderStore := &MockOrderStore{}
	orders := []*model.Order{{ID: 1, UserID: 100, Status: model.OrderReceived}}
	orderStore.On("ListOrders", mock.Anything,
		dao.OrderFilter{UserID: 100, Status: model.OrderReceived}, 1, 10).
		Return(orders, int64(1), nil)

	svc := newTestOrderService(orderStore, &MockCartStore{}, &MockProductStore{}, nil, nil, false)

	got, total, err := svc.ListMyOrders(context.Background(), 100, "received", 1, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, got, 1)

	_, _, err = svc.ListMyOrders(context.Background(), 100, "unknown", 1, 10)
	assert.Equal(t, e.INVALID_PARAMS, e.CodeOf(err))
}

func TestListAllOrdersDateFilter(t *testing.T) {
	orderStore := &MockOrderStore{}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2025, 1, 31, 23, 59, 59, 0, time.Local)
	orderStore.On("ListOrders", mock.Anything,
		dao.OrderFilter{StartDate: &start, EndDate: &end}, 2, 20).
		Return([]*model.Order{}, int64(0), nil)
	orderStore.On("ListOrders", mock.Anything,
		dao.OrderFilter{UserID: 42, StartDate: &start, EndDate: &end}, 1, 10).
		Return([]*model.Order{}, int64(0), nil)

	svc := newTestOrderService(orderStore, &MockCartStore{}, &MockProductStore{}, nil, nil, false)
	_, total, err := svc.ListAllOrders(context.Background(), 0, "", &start, &end, 2, 20)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), total)

	// 指定用户过滤
	_, _, err = svc.ListAllOrders(context.Background(), 42, "", &start, &end, 1, 10)
	assert.NoError(t, err)
	orderStore.AssertExpectations(t)
}
