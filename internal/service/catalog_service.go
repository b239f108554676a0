package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/classifieds-api/config"
	"github.com/d60-Lab/classifieds-api/internal/model"
	"github.com/d60-Lab/classifieds-api/internal/repository"
	"github.com/d60-Lab/classifieds-api/pkg/cache"
)

const homeSectionSize = 10

// 缓存键
const (
	cacheKeyHome          = "home:feed"
	cacheKeyCategories    = "categories:tree"
	cacheKeyCategoryStats = "categories:stats"
)

// ItemQuery 分类列表的过滤条件
type ItemQuery struct {
	MinPrice  *float64
	MaxPrice  *float64
	Condition string
	Sort      string
	Page
}

// ItemPage 一页商品
type ItemPage struct {
	Items   []*model.Item
	Total   int64
	Page    int
	PerPage int
}

// HomeFeed 首页三个栏目
type HomeFeed struct {
	Promoted []*model.Item `json:"promoted"`
	Latest   []*model.Item `json:"latest"`
	Popular  []*model.Item `json:"popular"`
}

// CatalogService 分类浏览与首页
type CatalogService interface {
	Categories(ctx context.Context) ([]*model.Category, error)
	CategoryStats(ctx context.Context) ([]repository.CategoryStat, error)
	CategoryItems(ctx context.Context, categoryID uint, q ItemQuery) (*ItemPage, error)
	SubCategoryItems(ctx context.Context, subCategoryID uint, q ItemQuery) (*ItemPage, error)
	Home(ctx context.Context) (*HomeFeed, error)
	// ItemDetail 返回商品并将浏览数 +1
	ItemDetail(ctx context.Context, id uint) (*model.Item, error)
}

type catalogService struct {
	items      repository.ItemRepository
	categories repository.CategoryRepository
	cache      *cache.Cache
	ttl        config.CacheConfig
	now        func() time.Time
}

func NewCatalogService(items repository.ItemRepository, categories repository.CategoryRepository, c *cache.Cache, ttl config.CacheConfig) CatalogService {
	return &catalogService{items: items, categories: categories, cache: c, ttl: ttl, now: time.Now}
}

func (s *catalogService) Categories(ctx context.Context) ([]*model.Category, error) {
	return cache.Remember(ctx, s.cache, cacheKeyCategories, s.ttl.CategoriesTTL, s.categories.Tree)
}

func (s *catalogService) CategoryStats(ctx context.Context) ([]repository.CategoryStat, error) {
	return cache.Remember(ctx, s.cache, cacheKeyCategoryStats, s.ttl.CategoryStatsTTL, s.items.CategoryStats)
}

func (s *catalogService) CategoryItems(ctx context.Context, categoryID uint, q ItemQuery) (*ItemPage, error) {
	if _, err := s.categories.FindCategory(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return s.list(ctx, repository.ItemFilter{CategoryID: &categoryID}, q)
}

func (s *catalogService) SubCategoryItems(ctx context.Context, subCategoryID uint, q ItemQuery) (*ItemPage, error) {
	if _, err := s.categories.FindSubCategory(ctx, subCategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubCategoryNotFound
		}
		return nil, fmt.Errorf("find subcategory: %w", err)
	}
	return s.list(ctx, repository.ItemFilter{SubCategoryID: &subCategoryID}, q)
}

func (s *catalogService) list(ctx context.Context, f repository.ItemFilter, q ItemQuery) (*ItemPage, error) {
	p := q.Page.normalize()
	f.MinPrice = q.MinPrice
	f.MaxPrice = q.MaxPrice
	f.Condition = q.Condition
	f.Sort = q.Sort
	f.Offset = p.offset()
	f.Limit = p.PerPage
	f.Now = s.now()

	items, total, err := s.items.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return &ItemPage{Items: items, Total: total, Page: p.Page, PerPage: p.PerPage}, nil
}

func (s *catalogService) Home(ctx context.Context) (*HomeFeed, error) {
	return cache.Remember(ctx, s.cache, cacheKeyHome, s.ttl.HomeTTL, func(ctx context.Context) (*HomeFeed, error) {
		now := s.now()
		promoted, err := s.items.Promoted(ctx, now, homeSectionSize)
		if err != nil {
			return nil, fmt.Errorf("promoted items: %w", err)
		}
		latest, _, err := s.items.List(ctx, repository.ItemFilter{Sort: repository.SortLatest, Limit: homeSectionSize, Now: now})
		if err != nil {
			return nil, fmt.Errorf("latest items: %w", err)
		}
		popular, _, err := s.items.List(ctx, repository.ItemFilter{Sort: repository.SortPopular, Limit: homeSectionSize, Now: now})
		if err != nil {
			return nil, fmt.Errorf("popular items: %w", err)
		}
		return &HomeFeed{Promoted: promoted, Latest: latest, Popular: popular}, nil
	})
}

func (s *catalogService) ItemDetail(ctx context.Context, id uint) (*model.Item, error) {
	item, err := s.items.FindActive(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("find item: %w", err)
	}
	if err := s.items.IncrementViews(ctx, id); err != nil {
		return nil, fmt.Errorf("increment views: %w", err)
	}
	item.ViewsCount++
	item.Promoted = item.PromotedAt(s.now())
	return item, nil
}
