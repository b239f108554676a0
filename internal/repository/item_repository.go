package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/classifieds-api/internal/model"
)

// 排序方式
const (
	SortLatest    = "latest"
	SortOldest    = "oldest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortPopular   = "popular"
	SortName      = "name"
	SortRelevance = "relevance"
)

// ItemFilter 列表/搜索的过滤条件
type ItemFilter struct {
	CategoryID         *uint
	SubCategoryID      *uint
	ChildSubCategoryID *uint
	MinPrice           *float64
	MaxPrice           *float64
	Condition          string
	Query              string
	Sort               string
	Offset             int
	Limit              int
	Now                time.Time
}

// CategoryStat 每个一级分类下的在售商品数
type CategoryStat struct {
	CategoryID uint   `json:"category_id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	ItemsCount int64  `json:"items_count"`
}

type ItemRepository interface {
	List(ctx context.Context, f ItemFilter) ([]*model.Item, int64, error)
	FindActive(ctx context.Context, id uint) (*model.Item, error)
	IncrementViews(ctx context.Context, id uint) error
	Promoted(ctx context.Context, now time.Time, limit int) ([]*model.Item, error)
	CategoryStats(ctx context.Context) ([]CategoryStat, error)
}

type itemRepository struct{ db *gorm.DB }

func NewItemRepository(db *gorm.DB) ItemRepository { return &itemRepository{db: db} }

func (r *itemRepository) List(ctx context.Context, f ItemFilter) ([]*model.Item, int64, error) {
	if f.Now.IsZero() {
		f.Now = time.Now()
	}
	q := r.filtered(ctx, f)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []*model.Item
	err := q.Select("items.*").
		Clauses(orderBy(f)).
		Offset(f.Offset).
		Limit(f.Limit).
		Preload("Category").
		Preload("SubCategory").
		Preload("ChildSubCategory").
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	markPromoted(items, f.Now)
	return items, total, nil
}

func markPromoted(items []*model.Item, now time.Time) {
	for _, it := range items {
		it.Promoted = it.PromotedAt(now)
	}
}

func (r *itemRepository) filtered(ctx context.Context, f ItemFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Item{}).Where("items.status = ?", model.ItemStatusActive)

	if f.CategoryID != nil {
		q = q.Where("(items.category_id = ? OR items.sub_category_id IN (?) OR items.child_sub_category_id IN (?))",
			*f.CategoryID,
			r.db.Model(&model.SubCategory{}).Select("id").Where("category_id = ?", *f.CategoryID),
			r.db.Table("child_sub_categories").
				Select("child_sub_categories.id").
				Joins("JOIN sub_categories ON sub_categories.id = child_sub_categories.sub_category_id").
				Where("sub_categories.category_id = ?", *f.CategoryID),
		)
	}
	if f.SubCategoryID != nil {
		q = q.Where("(items.sub_category_id = ? OR items.child_sub_category_id IN (?))",
			*f.SubCategoryID,
			r.db.Model(&model.ChildSubCategory{}).Select("id").Where("sub_category_id = ?", *f.SubCategoryID),
		)
	}
	if f.ChildSubCategoryID != nil {
		q = q.Where("items.child_sub_category_id = ?", *f.ChildSubCategoryID)
	}
	if f.MinPrice != nil {
		q = q.Where("items.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("items.price <= ?", *f.MaxPrice)
	}
	if f.Condition != "" {
		q = q.Where("items.condition = ?", f.Condition)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		q = q.Joins("LEFT JOIN child_sub_categories csc ON csc.id = items.child_sub_category_id").
			Joins("LEFT JOIN sub_categories sc ON sc.id = COALESCE(items.sub_category_id, csc.sub_category_id)").
			Joins("LEFT JOIN categories cat ON cat.id = COALESCE(items.category_id, sc.category_id)").
			Where("(LOWER(items.title) LIKE ? ESCAPE '!' OR LOWER(items.description) LIKE ? ESCAPE '!' OR LOWER(cat.name) LIKE ? ESCAPE '!')", like, like, like)
	}
	return q
}

// orderBy: 推广中的商品始终排在最前，然后按请求的主排序，最后 id 兜底
func orderBy(f ItemFilter) clause.OrderBy {
	parts := []string{"CASE WHEN items.is_promoted = ? AND (items.promoted_until IS NULL OR items.promoted_until > ?) THEN 0 ELSE 1 END"}
	vars := []interface{}{true, f.Now}

	sort := f.Sort
	if sort == "" {
		sort = SortLatest
		if strings.TrimSpace(f.Query) != "" {
			sort = SortRelevance
		}
	}

	switch sort {
	case SortRelevance:
		term := strings.ToLower(strings.TrimSpace(f.Query))
		if term == "" {
			parts = append(parts, "items.created_at DESC")
			break
		}
		like := "%" + escapeLike(term) + "%"
		parts = append(parts, "CASE WHEN LOWER(items.title) = ? THEN 1 WHEN LOWER(items.title) LIKE ? ESCAPE '!' THEN 2 WHEN LOWER(items.description) LIKE ? ESCAPE '!' THEN 3 WHEN LOWER(cat.name) LIKE ? ESCAPE '!' THEN 4 ELSE 5 END",
			"items.created_at DESC")
		vars = append(vars, term, like, like, like)
	case SortOldest:
		parts = append(parts, "items.created_at ASC")
	case SortPriceAsc:
		parts = append(parts, "items.price ASC")
	case SortPriceDesc:
		parts = append(parts, "items.price DESC")
	case SortPopular:
		parts = append(parts, "items.favorites_count DESC", "items.views_count DESC")
	case SortName:
		parts = append(parts, "items.title ASC")
	default:
		parts = append(parts, "items.created_at DESC")
	}
	parts = append(parts, "items.id DESC")

	return clause.OrderBy{Expression: clause.Expr{SQL: strings.Join(parts, ", "), Vars: vars, WithoutParentheses: true}}
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

func (r *itemRepository) FindActive(ctx context.Context, id uint) (*model.Item, error) {
	var item model.Item
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("SubCategory").
		Preload("ChildSubCategory").
		Where("id = ? AND status = ?", id, model.ItemStatusActive).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// IncrementViews 原子自增，不读后写
func (r *itemRepository) IncrementViews(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + ?", 1)).Error
}

func (r *itemRepository) Promoted(ctx context.Context, now time.Time, limit int) ([]*model.Item, error) {
	var items []*model.Item
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("status = ? AND is_promoted = ? AND (promoted_until IS NULL OR promoted_until > ?)", model.ItemStatusActive, true, now).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&items).Error
	markPromoted(items, now)
	return items, err
}

func (r *itemRepository) CategoryStats(ctx context.Context) ([]CategoryStat, error) {
	var rows []CategoryStat
	err := r.db.WithContext(ctx).Raw(`
		SELECT c.id AS category_id, c.name AS name, c.slug AS slug, COUNT(DISTINCT i.id) AS items_count
		FROM categories c
		LEFT JOIN items i ON i.status = ? AND (
			i.category_id = c.id
			OR i.sub_category_id IN (SELECT sc.id FROM sub_categories sc WHERE sc.category_id = c.id)
			OR i.child_sub_category_id IN (
				SELECT csc.id FROM child_sub_categories csc
				JOIN sub_categories sc2 ON sc2.id = csc.sub_category_id
				WHERE sc2.category_id = c.id
			)
		)
		WHERE c.is_active = ?
		GROUP BY c.id, c.name, c.slug, c.sort_order
		ORDER BY c.sort_order, c.id
	`, model.ItemStatusActive, true).Scan(&rows).Error
	return rows, err
}
