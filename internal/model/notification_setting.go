package model

import "time"

// NotificationSetting 每个用户一行，首次读取时按默认值创建
type NotificationSetting struct {
	ID            uint      `json:"-" gorm:"primaryKey"`
	UserID        uint      `json:"user_id" gorm:"not null;uniqueIndex"`
	PushEnabled   bool      `json:"push_enabled" gorm:"not null"`
	EmailEnabled  bool      `json:"email_enabled" gorm:"not null"`
	ChatMessages  bool      `json:"chat_messages" gorm:"not null"`
	ItemUpdates   bool      `json:"item_updates" gorm:"not null"`
	PriceAlerts   bool      `json:"price_alerts" gorm:"not null"`
	Promotions    bool      `json:"promotions" gorm:"not null"`
	SystemUpdates bool      `json:"system_updates" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (NotificationSetting) TableName() string { return "notification_settings" }

// DefaultNotificationSetting 默认开关：营销推送默认关闭
func DefaultNotificationSetting(userID uint) *NotificationSetting {
	return &NotificationSetting{
		UserID:        userID,
		PushEnabled:   true,
		EmailEnabled:  true,
		ChatMessages:  true,
		ItemUpdates:   true,
		PriceAlerts:   true,
		Promotions:    false,
		SystemUpdates: true,
	}
}
