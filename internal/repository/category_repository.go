package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/classifieds-api/internal/model"
)

type CategoryRepository interface {
	Tree(ctx context.Context) ([]*model.Category, error)
	FindCategory(ctx context.Context, id uint) (*model.Category, error)
	FindSubCategory(ctx context.Context, id uint) (*model.SubCategory, error)
}

type categoryRepository struct{ db *gorm.DB }

func NewCategoryRepository(db *gorm.DB) CategoryRepository { return &categoryRepository{db: db} }

// Tree 返回启用的三级分类树
func (r *categoryRepository) Tree(ctx context.Context) ([]*model.Category, error) {
	var res []*model.Category
	err := r.db.WithContext(ctx).
		Preload("SubCategories", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("name")
		}).
		Preload("SubCategories.ChildSubCategories", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("name")
		}).
		Where("is_active = ?", true).
		Order("sort_order").
		Order("id").
		Find(&res).Error
	return res, err
}

func (r *categoryRepository) FindCategory(ctx context.Context, id uint) (*model.Category, error) {
	var c model.Category
	if err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepository) FindSubCategory(ctx context.Context, id uint) (*model.SubCategory, error) {
	var sc model.SubCategory
	if err := r.db.WithContext(ctx).Preload("Category").Where("id = ? AND is_active = ?", id, true).First(&sc).Error; err != nil {
		return nil, err
	}
	return &sc, nil
}
