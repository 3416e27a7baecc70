package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yunn234/yunn-shoppingmall/config"
	"github.com/yunn234/yunn-shoppingmall/internal/client/payment"
	"github.com/yunn234/yunn-shoppingmall/internal/dao"
	"github.com/yunn234/yunn-shoppingmall/internal/model"
	"github.com/yunn234/yunn-shoppingmall/internal/mq"
	"github.com/yunn234/yunn-shoppingmall/pkg/e"
	"github.com/yunn234/yunn-shoppingmall/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 同一用户的下单互斥锁，防止重复提交产生重复订单
const (
	orderLockKeyFmt = "order:lock:user:%d"
	orderLockTTL    = 10 * time.Second
)

type OrderService struct {
	orderStore   OrderStore
	cartStore    CartStore
	productStore ProductStore
	userStore    UserStore
	gateway      payment.Gateway
	redisDB      redis.UniversalClient
	publisher    Publisher
	paymentCfg   *config.PaymentConfig
}

func NewOrderService(
	orderStore OrderStore,
	cartStore CartStore,
	productStore ProductStore,
	userStore UserStore,
	gateway payment.Gateway,
	redisDB redis.UniversalClient,
	publisher Publisher,
	paymentCfg *config.PaymentConfig,
) *OrderService {
	return &OrderService{
		orderStore:   orderStore,
		cartStore:    cartStore,
		productStore: productStore,
		userStore:    userStore,
		gateway:      gateway,
		redisDB:      redisDB,
		publisher:    publisher,
		paymentCfg:   paymentCfg,
	}
}

// ShippingRequest 收货信息
type ShippingRequest struct {
	RecipientName  string `json:"recipient_name"`
	RecipientPhone string `json:"recipient_phone"`
	PostalCode     string `json:"postal_code"`
	Address        string `json:"address"`
	DetailAddress  string `json:"detail_address"`
	DeliveryMemo   string `json:"delivery_memo"`
	ShippingFee    int64  `json:"shipping_fee"`
}

// PaymentRequest 客户端声明的结算信息，金额以服务端重算结果为准
type PaymentRequest struct {
	Method      string `json:"method"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"total_amount"`
	ImpUID      string `json:"imp_uid"`
	MerchantUID string `json:"merchant_uid"`
}

// DiscountRequest 优惠信息
type DiscountRequest struct {
	CouponDiscount int64  `json:"coupon_discount"`
	PointUsed      int64  `json:"point_used"`
	CouponCode     string `json:"coupon_code"`
}

// PlaceOrderRequest 下单请求
// CartItemIDs为空表示整车下单，非空表示只结算指定的购物车行
type PlaceOrderRequest struct {
	Shipping    ShippingRequest `json:"shipping"`
	Payment     PaymentRequest  `json:"payment"`
	Discount    DiscountRequest `json:"discount"`
	CartItemIDs []int64         `json:"cart_item_ids"`
}

// UpdateStatusRequest 状态流转请求
type UpdateStatusRequest struct {
	Status    string `json:"status" binding:"required"`
	AdminMemo string `json:"admin_memo"`
}

// UpdateShippingRequest 物流信息更新请求
type UpdateShippingRequest struct {
	TrackingNumber  string `json:"tracking_number"`
	ShippingCompany string `json:"shipping_company"`
}

// OrderEvent 订单事件载荷，投递到MQ供对账消费者使用
type OrderEvent struct {
	EventID     string  `json:"event_id"`
	UserID      int64   `json:"user_id"`
	OrderID     int64   `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	CartItemIDs []int64 `json:"cart_item_ids"`
}

// PlaceOrder 下单主流程：
// 校验 -> 抢用户锁 -> 取购物车并圈定结算行 -> 商品快照与金额重算 ->
// 与客户端声明金额对账 -> 支付网关核验 -> 落库(订单号撞库重试一次) ->
// 清理购物车行(失败不阻塞) -> 发布order.created事件
func (s *OrderService) PlaceOrder(ctx context.Context, userID int64, req *PlaceOrderRequest) (*model.Order, error) {
	if err := validatePlaceOrder(req); err != nil {
		return nil, err
	}

	// 同一用户串行下单，拿不到锁直接拒绝让客户端稍后重试
	if s.redisDB != nil {
		lockKey := fmt.Sprintf(orderLockKeyFmt, userID)
		ok, err := s.redisDB.SetNX(ctx, lockKey, 1, orderLockTTL).Result()
		if err != nil {
			logger.WarnContext(ctx, "下单锁获取异常，降级放行", "user_id", userID, "error", err)
		} else if !ok {
			return nil, e.New(e.ERROR_ORDER_IN_PROGRESS)
		} else {
			defer s.redisDB.Del(context.WithoutCancel(ctx), lockKey)
		}
	}

	cart, err := s.cartStore.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, orderedIDs, err := selectCartItems(cart, req.CartItemIDs)
	if err != nil {
		return nil, err
	}

	orderItems, subtotal, err := s.snapshotItems(ctx, items)
	if err != nil {
		return nil, err
	}

	shippingFee := model.CalcShippingFee(subtotal, req.Shipping.ShippingFee)
	total := subtotal + shippingFee - req.Discount.CouponDiscount - req.Discount.PointUsed

	if req.Payment.TotalAmount != 0 && req.Payment.TotalAmount != total {
		return nil, e.NewMsg(e.ERROR_ORDER_AMOUNT_MISMATCH,
			fmt.Sprintf("订单金额不一致: 声明%d, 实际%d", req.Payment.TotalAmount, total))
	}

	// 仅当声明已支付且携带网关交易号时才触发网关核验
	// 未支付的声明(如虚拟账户等待入金)不核验，订单以待支付状态落库
	declaredPaid := strings.EqualFold(req.Payment.Status, string(model.PaymentPaid)) &&
		req.Payment.ImpUID != ""
	if declaredPaid {
		if err := s.verifyPayment(ctx, req.Payment.ImpUID, total); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	order := &model.Order{
		UserID:      userID,
		OrderNumber: model.GenerateOrderNumber(now),
		Status:      model.OrderReceived,
		Items:       orderItems,
		Payment: model.Payment{
			Method:      model.PaymentMethod(req.Payment.Method),
			Status:      model.PaymentPending,
			TotalAmount: total,
			ImpUID:      req.Payment.ImpUID,
			MerchantUID: req.Payment.MerchantUID,
		},
		Shipping: model.Shipping{
			RecipientName:  req.Shipping.RecipientName,
			RecipientPhone: req.Shipping.RecipientPhone,
			PostalCode:     req.Shipping.PostalCode,
			Address:        req.Shipping.Address,
			DetailAddress:  req.Shipping.DetailAddress,
			DeliveryMemo:   req.Shipping.DeliveryMemo,
			ShippingFee:    shippingFee,
		},
		Discount: model.Discount{
			CouponDiscount: req.Discount.CouponDiscount,
			PointUsed:      req.Discount.PointUsed,
			CouponCode:     req.Discount.CouponCode,
		},
		Subtotal:    subtotal,
		TotalAmount: total,
	}
	if declaredPaid {
		order.ApplyStatus(model.OrderPaymentConfirmed, now)
	}

	if err := s.insertWithRetry(ctx, order); err != nil {
		return nil, err
	}

	// 订单已落库，购物车清理失败不回滚订单，交给对账消费者补偿
	if err := s.cartStore.RemoveItemsByID(ctx, userID, orderedIDs); err != nil {
		logger.WarnContext(ctx, "下单后购物车清理失败，等待对账补偿",
			"user_id", userID, "order_number", order.OrderNumber, "error", err)
	}

	s.publishEvent(ctx, mq.KeyOrderCreated, order, orderedIDs)

	created, err := s.orderStore.GetOrderByID(ctx, order.ID)
	if err != nil {
		// 回读失败时退回内存中的订单，不影响下单结果
		logger.WarnContext(ctx, "订单回读失败", "order_id", order.ID, "error", err)
		return order, nil
	}
	return created, nil
}

func validatePlaceOrder(req *PlaceOrderRequest) error {
	if req.Shipping.RecipientName == "" || req.Shipping.RecipientPhone == "" || req.Shipping.Address == "" {
		return e.NewMsg(e.INVALID_PARAMS, "收货人姓名、电话、地址为必填项")
	}
	if req.Payment.Method == "" {
		return e.NewMsg(e.INVALID_PARAMS, "支付方式为必填项")
	}
	if !model.PaymentMethod(req.Payment.Method).Valid() {
		return e.NewMsg(e.INVALID_PARAMS, "不支持的支付方式: "+req.Payment.Method)
	}
	if req.Discount.CouponDiscount < 0 || req.Discount.PointUsed < 0 {
		return e.NewMsg(e.INVALID_PARAMS, "优惠金额不能为负数")
	}
	return nil
}

// selectCartItems 圈定结算行：ids为空取整车，非空取ids与购物车行的交集
// 不在购物车里的ID直接忽略(可能已被并发结算)，交集为空按空购物车处理
func selectCartItems(cart *model.Cart, ids []int64) ([]model.CartItem, []int64, error) {
	if len(cart.Items) == 0 {
		return nil, nil, e.New(e.ERROR_CART_EMPTY)
	}

	if len(ids) == 0 {
		orderedIDs := make([]int64, 0, len(cart.Items))
		for _, item := range cart.Items {
			orderedIDs = append(orderedIDs, item.ID)
		}
		return cart.Items, orderedIDs, nil
	}

	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	selected := make([]model.CartItem, 0, len(ids))
	orderedIDs := make([]int64, 0, len(ids))
	for _, item := range cart.Items {
		if wanted[item.ID] {
			selected = append(selected, item)
			orderedIDs = append(orderedIDs, item.ID)
		}
	}
	if len(selected) == 0 {
		return nil, nil, e.New(e.ERROR_CART_EMPTY)
	}
	return selected, orderedIDs, nil
}

// snapshotItems 逐行读取商品现价并做快照，小计用快照价计算
func (s *OrderService) snapshotItems(ctx context.Context, items []model.CartItem) ([]model.OrderItem, int64, error) {
	orderItems := make([]model.OrderItem, 0, len(items))
	var subtotal int64
	for _, item := range items {
		product, err := s.productStore.GetProductByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, e.NewMsg(e.ERROR_PRODUCT_NOT_EXISTS,
					fmt.Sprintf("商品不存在: %d", item.ProductID))
			}
			return nil, 0, err
		}
		if !product.IsOnSale() {
			return nil, 0, e.NewMsg(e.ERROR_PRODUCT_NOT_ON_SALE,
				fmt.Sprintf("商品已下架: %s", product.Name))
		}

		orderItems = append(orderItems, model.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			ProductCode: product.ProductCode,
			Quantity:    item.Quantity,
			Price:       product.Price,
			Color:       item.Color,
			Size:        item.Size,
			Image:       product.FirstImage(),
		})
		subtotal += product.Price * int64(item.Quantity)
	}
	return orderItems, subtotal, nil
}

// verifyPayment 支付网关核验：状态必须为paid且金额与服务端重算结果一致
// 沙箱模式下网关查不到交易仅告警放行
func (s *OrderService) verifyPayment(ctx context.Context, impUID string, total int64) error {
	if impUID == "" || s.gateway == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.paymentCfg.Timeout())
	defer cancel()

	txn, err := s.gateway.GetTransaction(callCtx, impUID)
	if err != nil {
		if errors.Is(err, payment.ErrTransactionNotFound) && s.paymentCfg.SandboxLeniency {
			logger.WarnContext(ctx, "网关查无此交易，沙箱模式放行", "imp_uid", impUID)
			return nil
		}
		logger.ErrorContext(ctx, "支付网关核验失败", "imp_uid", impUID, "error", err)
		return e.New(e.ERROR_PAYMENT_GATEWAY)
	}

	if txn.Status != payment.StatusPaid {
		return e.NewMsg(e.ERROR_PAYMENT_MISMATCH, "支付状态异常: "+txn.Status)
	}
	if txn.Amount != total {
		return e.NewMsg(e.ERROR_PAYMENT_MISMATCH,
			fmt.Sprintf("支付金额不一致: 网关%d, 订单%d", txn.Amount, total))
	}
	return nil
}

// insertWithRetry 订单号撞唯一约束时重新生成并重试一次，再撞则放弃
func (s *OrderService) insertWithRetry(ctx context.Context, order *model.Order) error {
	err := s.orderStore.InsertOrder(ctx, order)
	if err == nil {
		return nil
	}
	if !errors.Is(err, dao.ErrDuplicateOrderNumber) {
		return err
	}

	logger.WarnContext(ctx, "订单号碰撞，重新生成后重试", "order_number", order.OrderNumber)
	order.ID = 0
	order.OrderNumber = model.GenerateOrderNumber(time.Now())
	err = s.orderStore.InsertOrder(ctx, order)
	if err == nil {
		return nil
	}
	if errors.Is(err, dao.ErrDuplicateOrderNumber) {
		return e.New(e.ERROR_ORDER_NUMBER_CONFLICT)
	}
	return err
}

func (s *OrderService) publishEvent(ctx context.Context, key string, order *model.Order, cartItemIDs []int64) {
	if s.publisher == nil {
		return
	}
	event := OrderEvent{
		EventID:     uuid.New().String(),
		UserID:      order.UserID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CartItemIDs: cartItemIDs,
	}
	body, err := json.Marshal(event)
	if err != nil {
		logger.ErrorContext(ctx, "订单事件序列化失败", "order_id", order.ID, "error", err)
		return
	}
	if err := s.publisher.PublishAsyncWithID(mq.Exchange, key, body, event.EventID); err != nil {
		logger.ErrorContext(ctx, "订单事件投递失败",
			"routing_key", key, "order_id", order.ID, "error", err)
	}
}

// GetOrder 查单，仅订单归属人或管理员可见
func (s *OrderService) GetOrder(ctx context.Context, orderID, requesterID int64, isAdmin bool) (*model.Order, error) {
	order, err := s.orderStore.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, e.New(e.ERROR_ORDER_NOT_EXISTS)
		}
		return nil, err
	}
	if order.UserID != requesterID && !isAdmin {
		return nil, e.New(e.ERROR_FORBIDDEN)
	}
	return order, nil
}

// GetOrderByNumber 按订单号查单，同样受归属校验约束
func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string, requesterID int64, isAdmin bool) (*model.Order, error) {
	order, err := s.orderStore.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, e.New(e.ERROR_ORDER_NOT_EXISTS)
		}
		return nil, err
	}
	if order.UserID != requesterID && !isAdmin {
		return nil, e.New(e.ERROR_FORBIDDEN)
	}
	return order, nil
}

// ListMyOrders 用户自己的订单列表，可按状态过滤
func (s *OrderService) ListMyOrders(ctx context.Context, userID int64, status string, page, pageSize int) ([]*model.Order, int64, error) {
	filter := dao.OrderFilter{UserID: userID}
	if status != "" {
		st := model.OrderStatus(status)
		if !st.Valid() {
			return nil, 0, e.NewMsg(e.INVALID_PARAMS, "无效的订单状态: "+status)
		}
		filter.Status = st
	}
	return s.orderStore.ListOrders(ctx, filter, page, pageSize)
}

// ListAllOrders 管理员全量订单列表，支持用户、状态与下单时间区间过滤
func (s *OrderService) ListAllOrders(ctx context.Context, userID int64, status string, startDate, endDate *time.Time, page, pageSize int) ([]*model.Order, int64, error) {
	filter := dao.OrderFilter{UserID: userID, StartDate: startDate, EndDate: endDate}
	if status != "" {
		st := model.OrderStatus(status)
		if !st.Valid() {
			return nil, 0, e.NewMsg(e.INVALID_PARAMS, "无效的订单状态: "+status)
		}
		filter.Status = st
	}
	return s.orderStore.ListOrders(ctx, filter, page, pageSize)
}

// UpdateStatus 状态流转。向前推进只允许管理员；取消走CancelOrder的归属规则
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, requesterID int64, isAdmin bool, req *UpdateStatusRequest) (*model.Order, error) {
	next := model.OrderStatus(req.Status)
	if !next.Valid() {
		return nil, e.NewMsg(e.INVALID_PARAMS, "无效的订单状态: "+req.Status)
	}
	if next == model.OrderCancelled {
		return s.CancelOrder(ctx, orderID, requesterID, isAdmin)
	}
	if !isAdmin {
		return nil, e.New(e.ERROR_FORBIDDEN)
	}

	order, err := s.orderStore.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, e.New(e.ERROR_ORDER_NOT_EXISTS)
		}
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, e.NewMsg(e.ERROR_ORDER_INVALID_STATE,
			fmt.Sprintf("订单处于终态%s，不可流转", order.Status))
	}

	order.ApplyStatus(next, time.Now())
	if req.AdminMemo != "" {
		order.AdminMemo = req.AdminMemo
	}
	if err := s.orderStore.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateShipping 管理员更新物流单号与承运商
func (s *OrderService) UpdateShipping(ctx context.Context, orderID int64, req *UpdateShippingRequest) (*model.Order, error) {
	order, err := s.orderStore.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, e.New(e.ERROR_ORDER_NOT_EXISTS)
		}
		return nil, err
	}

	if req.TrackingNumber != "" {
		order.Shipping.TrackingNumber = req.TrackingNumber
	}
	if req.ShippingCompany != "" {
		order.Shipping.ShippingCompany = req.ShippingCompany
	}
	if err := s.orderStore.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder 取消订单：归属人或管理员发起，仅前三个状态允许
// 已支付的订单取消后进入退款处理中
func (s *OrderService) CancelOrder(ctx context.Context, orderID, requesterID int64, isAdmin bool) (*model.Order, error) {
	order, err := s.orderStore.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, e.New(e.ERROR_ORDER_NOT_EXISTS)
		}
		return nil, err
	}
	if order.UserID != requesterID && !isAdmin {
		return nil, e.New(e.ERROR_FORBIDDEN)
	}
	if !order.Status.Cancellable() {
		return nil, e.NewMsg(e.ERROR_ORDER_INVALID_STATE,
			fmt.Sprintf("订单状态%s不允许取消", order.Status))
	}

	order.ApplyStatus(model.OrderCancelled, time.Now())
	if err := s.orderStore.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, mq.KeyOrderCancelled, order, nil)
	return order, nil
}
