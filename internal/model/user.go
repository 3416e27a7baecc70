package model

import (
	"time"
)

// 用户类型
const (
	UserTypeCustomer = "customer"
	UserTypeAdmin    = "admin"
)

type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string     `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Name         string     `gorm:"size:50;not null" json:"name"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	PhoneNumber  string     `gorm:"size:20;not null" json:"phone_number"`
	UserType     string     `gorm:"size:20;not null;default:customer;index" json:"user_type"`
	Address      string     `gorm:"size:255" json:"address"`
	BirthDate    *time.Time `json:"birth_date"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (*User) TableName() string {
	return "users"
}

// IsAdmin 判断是否为管理员
func (u *User) IsAdmin() bool {
	return u.UserType == UserTypeAdmin
}

// ValidUserType 用户类型是否在允许范围内
func ValidUserType(t string) bool {
	return t == UserTypeCustomer || t == UserTypeAdmin
}
