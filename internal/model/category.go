package model

import "time"

// Category 一级分类
type Category struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	Name          string        `json:"name" gorm:"size:150;not null"`
	Slug          string        `json:"slug" gorm:"size:150;uniqueIndex;not null"`
	Icon          string        `json:"icon,omitempty" gorm:"size:255"`
	SortOrder     int           `json:"sort_order" gorm:"not null;index"`
	IsActive      bool          `json:"is_active" gorm:"not null;index"`
	SubCategories []SubCategory `json:"subcategories,omitempty" gorm:"foreignKey:CategoryID"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (Category) TableName() string { return "categories" }

// SubCategory 二级分类
type SubCategory struct {
	ID                 uint               `json:"id" gorm:"primaryKey"`
	CategoryID         uint               `json:"category_id" gorm:"not null;index"`
	Name               string             `json:"name" gorm:"size:150;not null"`
	Slug               string             `json:"slug" gorm:"size:150;not null"`
	IsActive           bool               `json:"is_active" gorm:"not null"`
	Category           *Category          `json:"category,omitempty"`
	ChildSubCategories []ChildSubCategory `json:"child_subcategories,omitempty" gorm:"foreignKey:SubCategoryID"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (SubCategory) TableName() string { return "sub_categories" }

// ChildSubCategory 三级分类
type ChildSubCategory struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	SubCategoryID uint         `json:"sub_category_id" gorm:"not null;index"`
	Name          string       `json:"name" gorm:"size:150;not null"`
	Slug          string       `json:"slug" gorm:"size:150;not null"`
	IsActive      bool         `json:"is_active" gorm:"not null"`
	SubCategory   *SubCategory `json:"sub_category,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (ChildSubCategory) TableName() string { return "child_sub_categories" }
