package model

import (
	"fmt"
	"math/rand"
	"time"
)

// OrderStatus 订单状态（封闭集合）
type OrderStatus string

const (
	OrderReceived         OrderStatus = "received"          // 订单接收
	OrderPaymentConfirmed OrderStatus = "payment_confirmed" // 支付完成
	OrderPreparing        OrderStatus = "preparing"         // 备货中
	OrderShipping         OrderStatus = "shipping"          // 配送中
	OrderDelivered        OrderStatus = "delivered"         // 配送完成
	OrderCancelled        OrderStatus = "cancelled"         // 已取消
	OrderRefundPending    OrderStatus = "refund_pending"    // 退款处理中
	OrderRefunded         OrderStatus = "refunded"          // 已退款
)

// Valid 状态值是否在枚举范围内
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderReceived, OrderPaymentConfirmed, OrderPreparing, OrderShipping,
		OrderDelivered, OrderCancelled, OrderRefundPending, OrderRefunded:
		return true
	}
	return false
}

// Cancellable 仅接收/支付完成/备货中三个状态允许取消
func (s OrderStatus) Cancellable() bool {
	switch s {
	case OrderReceived, OrderPaymentConfirmed, OrderPreparing:
		return true
	}
	return false
}

// Terminal 终态不再流转
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderDelivered, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// PaymentMethod 支付方式（封闭集合）
type PaymentMethod string

const (
	PayMethodCard           PaymentMethod = "card"            // 信用卡
	PayMethodBankTransfer   PaymentMethod = "bank_transfer"   // 银行转账
	PayMethodNaverPay       PaymentMethod = "naver_pay"       // Naver Pay
	PayMethodKakaoPay       PaymentMethod = "kakao_pay"       // Kakao Pay
	PayMethodVirtualAccount PaymentMethod = "virtual_account" // 虚拟账户
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PayMethodCard, PayMethodBankTransfer, PayMethodNaverPay, PayMethodKakaoPay, PayMethodVirtualAccount:
		return true
	}
	return false
}

// PaymentStatus 支付状态（封闭集合）
type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "pending"        // 待支付
	PaymentPaid          PaymentStatus = "paid"           // 已支付
	PaymentFailed        PaymentStatus = "failed"         // 支付失败
	PaymentRefundPending PaymentStatus = "refund_pending" // 退款处理中
	PaymentRefunded      PaymentStatus = "refunded"       // 已退款
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefundPending, PaymentRefunded:
		return true
	}
	return false
}

// 运费规则：满70000免运费，否则固定2500
const (
	FreeShippingThreshold int64 = 70000
	DefaultShippingFee    int64 = 2500
)

// CalcShippingFee 运费：调用方声明了运费则原样采用，否则按小计计算
func CalcShippingFee(subtotal, declared int64) int64 {
	if declared > 0 {
		return declared
	}
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	return DefaultShippingFee
}

// Payment 订单内嵌的结算子记录
type Payment struct {
	Method       PaymentMethod `gorm:"size:20;not null" json:"method"`
	Status       PaymentStatus `gorm:"size:20;not null;default:pending" json:"status"`
	TotalAmount  int64         `gorm:"not null" json:"total_amount"`
	PaidAt       *time.Time    `json:"paid_at"`
	RefundAt     *time.Time    `json:"refund_at"`
	RefundReason string        `gorm:"size:255;default:''" json:"refund_reason"`
	ImpUID       string        `gorm:"size:100;default:'';column:imp_uid" json:"imp_uid"`
	MerchantUID  string        `gorm:"size:100;default:'';column:merchant_uid" json:"merchant_uid"`
}

// Shipping 订单内嵌的配送子记录
type Shipping struct {
	RecipientName   string     `gorm:"size:50;not null" json:"recipient_name"`
	RecipientPhone  string     `gorm:"size:20;not null" json:"recipient_phone"`
	PostalCode      string     `gorm:"size:20;default:''" json:"postal_code"`
	Address         string     `gorm:"size:255;not null" json:"address"`
	DetailAddress   string     `gorm:"size:255;default:''" json:"detail_address"`
	DeliveryMemo    string     `gorm:"size:255;default:''" json:"delivery_memo"`
	ShippingFee     int64      `gorm:"not null;default:0" json:"shipping_fee"`
	TrackingNumber  string     `gorm:"size:50;default:''" json:"tracking_number"`
	ShippingCompany string     `gorm:"size:50;default:''" json:"shipping_company"`
	ShippedAt       *time.Time `json:"shipped_at"`
	DeliveredAt     *time.Time `json:"delivered_at"`
}

// Discount 订单内嵌的优惠子记录
type Discount struct {
	CouponDiscount int64  `gorm:"not null;default:0" json:"coupon_discount"`
	PointUsed      int64  `gorm:"not null;default:0" json:"point_used"`
	CouponCode     string `gorm:"size:50;default:''" json:"coupon_code"`
}

// OrderItem 订单行项目，下单时刻的商品快照，之后商品变更不影响已下订单
type OrderItem struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64     `gorm:"not null;index" json:"order_id"`
	ProductID   int64     `gorm:"not null;index" json:"product_id"`
	ProductName string    `gorm:"size:100;not null" json:"product_name"`
	ProductCode string    `gorm:"size:50;not null" json:"product_code"`
	Quantity    int32     `gorm:"not null" json:"quantity"`
	Price       int64     `gorm:"not null" json:"price"`
	Color       string    `gorm:"size:50;default:''" json:"color"`
	Size        string    `gorm:"size:50;default:''" json:"size"`
	Image       string    `gorm:"size:255;default:''" json:"image"`
	Product     *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (*OrderItem) TableName() string {
	return "order_items"
}

// Order 订单模型
type Order struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64       `gorm:"not null;index:idx_orders_user_created" json:"user_id"`
	OrderNumber string      `gorm:"size:20;not null;uniqueIndex" json:"order_number"`
	Status      OrderStatus `gorm:"size:20;not null;default:received;index" json:"status"`
	Items       []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	Payment     Payment     `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	Shipping    Shipping    `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping"`
	Discount    Discount    `gorm:"embedded;embeddedPrefix:discount_" json:"discount"`
	Subtotal    int64       `gorm:"not null" json:"subtotal"`
	TotalAmount int64       `gorm:"not null" json:"total_amount"`
	AdminMemo   string      `gorm:"size:500;default:''" json:"admin_memo"`
	User        *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt   time.Time   `gorm:"autoCreateTime;index:idx_orders_user_created" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (*Order) TableName() string {
	return "orders"
}

// GenerateOrderNumber 生成订单号：本地时间YYYYMMDDHHMMSS+4位随机数
// 同一秒内随机后缀可能碰撞，插入撞唯一约束时需重新生成并重试一次
func GenerateOrderNumber(now time.Time) string {
	return fmt.Sprintf("%s%04d", now.Format("20060102150405"), rand.Intn(10000))
}

// TotalQuantity 订单内商品总件数
func (o *Order) TotalQuantity() int32 {
	var total int32
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// ApplyStatus 执行状态流转的副作用：时间戳只设置一次，重复进入同一状态不覆盖
// 调用方负责先校验流转是否被允许
func (o *Order) ApplyStatus(status OrderStatus, now time.Time) {
	o.Status = status

	switch status {
	case OrderPaymentConfirmed:
		if o.Payment.Status != PaymentPaid {
			o.Payment.Status = PaymentPaid
			if o.Payment.PaidAt == nil {
				t := now
				o.Payment.PaidAt = &t
			}
		}
	case OrderShipping:
		if o.Shipping.ShippedAt == nil {
			t := now
			o.Shipping.ShippedAt = &t
		}
	case OrderDelivered:
		if o.Shipping.DeliveredAt == nil {
			t := now
			o.Shipping.DeliveredAt = &t
		}
	case OrderCancelled:
		// 已支付订单的取消不能悄悄丢掉结算记录，转入退款流程
		if o.Payment.Status == PaymentPaid {
			o.Payment.Status = PaymentRefundPending
		}
	}
}
