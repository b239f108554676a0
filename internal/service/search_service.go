package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/d60-Lab/classifieds-api/internal/repository"
)

// SearchQuery 搜索条件；Sort 为空时按相关度排序
type SearchQuery struct {
	Q                  string
	CategoryID         *uint
	SubCategoryID      *uint
	ChildSubCategoryID *uint
	MinPrice           *float64
	MaxPrice           *float64
	Condition          string
	Sort               string
	Page
}

type SearchService interface {
	Search(ctx context.Context, q SearchQuery) (*ItemPage, error)
}

type searchService struct {
	items repository.ItemRepository
	now   func() time.Time
}

func NewSearchService(items repository.ItemRepository) SearchService {
	return &searchService{items: items, now: time.Now}
}

func (s *searchService) Search(ctx context.Context, q SearchQuery) (*ItemPage, error) {
	p := q.Page.normalize()
	sort := q.Sort
	if sort == "" {
		sort = repository.SortRelevance
	}
	items, total, err := s.items.List(ctx, repository.ItemFilter{
		CategoryID:         q.CategoryID,
		SubCategoryID:      q.SubCategoryID,
		ChildSubCategoryID: q.ChildSubCategoryID,
		MinPrice:           q.MinPrice,
		MaxPrice:           q.MaxPrice,
		Condition:          q.Condition,
		Query:              strings.TrimSpace(q.Q),
		Sort:               sort,
		Offset:             p.offset(),
		Limit:              p.PerPage,
		Now:                s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	return &ItemPage{Items: items, Total: total, Page: p.Page, PerPage: p.PerPage}, nil
}
