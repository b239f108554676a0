package model

import "time"

// User 用户（由宿主认证系统创建，这里只读写资料字段）
type User struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	Name              string     `json:"name" gorm:"size:255;not null"`
	Email             string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Phone             *string    `json:"phone" gorm:"size:32"`
	Bio               *string    `json:"bio" gorm:"type:text"`
	Location          *string    `json:"location" gorm:"size:255"`
	AvatarPath        *string    `json:"-" gorm:"size:512"`
	FCMToken          *string    `json:"-" gorm:"column:fcm_token;size:512"`
	FCMTokenUpdatedAt *time.Time `json:"-" gorm:"column:fcm_token_updated_at"`
	IsActive          bool       `json:"is_active" gorm:"not null"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }
