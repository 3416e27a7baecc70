package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ProductStatus 商品销售状态
type ProductStatus string

const (
	ProductOnSale       ProductStatus = "on_sale"      // 销售中
	ProductDiscontinued ProductStatus = "discontinued" // 已下架
)

// Category 商品分类（封闭集合）
type Category string

const (
	CategoryTop        Category = "TOP"
	CategoryOuter      Category = "OUTER"
	CategoryPants      Category = "PANTS"
	CategoryDressSkirt Category = "DRESS/SKIRT"
	CategoryBagShoes   Category = "BAG/SHOES"
)

// Valid 分类是否在允许范围内
func (c Category) Valid() bool {
	switch c {
	case CategoryTop, CategoryOuter, CategoryPants, CategoryDressSkirt, CategoryBagShoes:
		return true
	}
	return false
}

// ProductOption 商品可选项（如颜色、尺码）
type ProductOption struct {
	Name  string `json:"option_name"`
	Value string `json:"option_value"`
}

// OptionList 选项列表，JSON序列化后存入单列
type OptionList []ProductOption

func (o OptionList) Value() (driver.Value, error) {
	return json.Marshal(o)
}

func (o *OptionList) Scan(v interface{}) error {
	b, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("option list: unexpected column type %T", v)
	}
	return json.Unmarshal(b, o)
}

// ImageList 图片URL列表，JSON序列化后存入单列
type ImageList []string

func (i ImageList) Value() (driver.Value, error) {
	return json.Marshal(i)
}

func (i *ImageList) Scan(v interface{}) error {
	b, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("image list: unexpected column type %T", v)
	}
	return json.Unmarshal(b, i)
}

type Product struct {
	ID          int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductCode string        `gorm:"size:50;not null;uniqueIndex" json:"product_code"`
	Name        string        `gorm:"size:100;not null;index" json:"name"`
	Price       int64         `gorm:"not null" json:"price"`
	Category    Category      `gorm:"size:20;not null;index" json:"category"`
	Images      ImageList     `gorm:"type:json;not null" json:"images"`
	Options     OptionList    `gorm:"type:json;not null" json:"options"`
	Description string        `gorm:"type:text" json:"description"`
	Status      ProductStatus `gorm:"size:20;not null;default:on_sale" json:"status"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (*Product) TableName() string {
	return "products"
}

// IsOnSale 判断商品是否可下单
func (p *Product) IsOnSale() bool {
	return p.Status == ProductOnSale
}

// FirstImage 取首图作为订单快照图片，无图返回空串
func (p *Product) FirstImage() string {
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return ""
}
