package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item 商品/帖子
type Item struct {
	ID                 uint              `json:"id" gorm:"primaryKey"`
	UserID             uint              `json:"user_id" gorm:"not null;index"`
	CategoryID         *uint             `json:"category_id" gorm:"index"`
	SubCategoryID      *uint             `json:"sub_category_id" gorm:"index"`
	ChildSubCategoryID *uint             `json:"child_sub_category_id" gorm:"index"`
	Title              string            `json:"title" gorm:"size:255;not null"`
	Description        string            `json:"description" gorm:"type:text"`
	Price              decimal.Decimal   `json:"price" gorm:"type:decimal(12,2);not null" swaggertype:"string" example:"120.00"`
	Condition          string            `json:"condition" gorm:"size:20;not null;index"`
	Status             string            `json:"status" gorm:"size:20;not null;default:active;index"`
	Location           string            `json:"location,omitempty" gorm:"size:255"`
	IsPromoted         bool              `json:"is_promoted" gorm:"not null;index"`
	PromotedUntil      *time.Time        `json:"promoted_until"`
	ViewsCount         int64             `json:"views_count" gorm:"not null"`
	FavoritesCount     int64             `json:"favorites_count" gorm:"not null"`
	Category           *Category         `json:"category,omitempty"`
	SubCategory        *SubCategory      `json:"sub_category,omitempty"`
	ChildSubCategory   *ChildSubCategory `json:"child_sub_category,omitempty"`
	// Promoted 查询时刻推广是否有效，不落库
	Promoted           bool              `json:"promoted" gorm:"-"`
	CreatedAt          time.Time         `json:"created_at" gorm:"index"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func (Item) TableName() string { return "items" }

// 商品状态
const (
	ItemStatusActive   = "active"
	ItemStatusSold     = "sold"
	ItemStatusInactive = "inactive"
)

// 成色
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like_new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
)

// PromotedAt reports whether the promotion flag is set and not yet expired at t.
func (i *Item) PromotedAt(t time.Time) bool {
	if !i.IsPromoted {
		return false
	}
	return i.PromotedUntil == nil || i.PromotedUntil.After(t)
}
