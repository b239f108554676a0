package model

import (
	"time"

	"gorm.io/datatypes"
)

// UserHistory 用户行为记录，只对创建者可见
type UserHistory struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"-" gorm:"not null;index:idx_history_user_created,priority:1;index:idx_history_user_type,priority:1"`
	Type        string         `json:"type" gorm:"size:50;not null;index:idx_history_user_type,priority:2"`
	Action      string         `json:"action" gorm:"size:50;not null"`
	Title       *string        `json:"title" gorm:"size:255"`
	Description *string        `json:"description" gorm:"type:text"`
	Category    *string        `json:"category" gorm:"size:100"`
	Details     datatypes.JSON `json:"details" gorm:"type:json" swaggertype:"object"`
	RelatedType *string        `json:"related_type" gorm:"size:100"`
	RelatedID   *uint          `json:"related_id"`
	CreatedAt   time.Time      `json:"created_at" gorm:"index:idx_history_user_created,priority:2"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (UserHistory) TableName() string { return "user_histories" }
