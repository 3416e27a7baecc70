package model

import "time"

// Cart 购物车，一个用户只有一张（user_id唯一约束）
// version列用于乐观锁：读取-修改-写回必须携带读到的版本号
type Cart struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64      `gorm:"not null;uniqueIndex" json:"user_id"`
	Version   int64      `gorm:"not null;default:0" json:"-"`
	Items     []CartItem `gorm:"foreignKey:CartID" json:"items"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (*Cart) TableName() string {
	return "carts"
}

// CartItem 购物车行项目：商品+选项+数量
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64     `gorm:"not null;index" json:"cart_id"`
	ProductID int64     `gorm:"not null;index" json:"product_id"`
	Quantity  int32     `gorm:"not null;default:1" json:"quantity"`
	Color     string    `gorm:"size:50;default:''" json:"color"`
	Size      string    `gorm:"size:50;default:''" json:"size"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (*CartItem) TableName() string {
	return "cart_items"
}

// SameSelection 商品与选项(颜色/尺码)都一致时视为同一行
func (i *CartItem) SameSelection(productID int64, color, size string) bool {
	return i.ProductID == productID && i.Color == color && i.Size == size
}

// TotalQuantity 购物车内商品总件数
func (c *Cart) TotalQuantity() int32 {
	var total int32
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// FindItem 按行ID查找，找不到返回-1
func (c *Cart) FindItem(itemID int64) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}
