package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/d60-Lab/classifieds-api/internal/model"
	"github.com/d60-Lab/classifieds-api/internal/repository"
)

// HistoryInput 新建历史记录
type HistoryInput struct {
	Type        string
	Action      string
	Title       *string
	Description *string
	Category    *string
	Details     map[string]interface{}
	RelatedType *string
	RelatedID   *uint
}

// HistoryQuery 历史列表过滤
type HistoryQuery struct {
	Type     string
	Action   string
	Category string
	Page
}

type HistoryPage struct {
	Items   []*model.UserHistory
	Total   int64
	Page    int
	PerPage int
}

// HistoryStats 按类型统计
type HistoryStats struct {
	Total  int64                  `json:"total"`
	ByType []repository.TypeCount `json:"by_type"`
}

// HistoryService 用户只能看到/删除自己的记录
type HistoryService interface {
	List(ctx context.Context, userID uint, q HistoryQuery) (*HistoryPage, error)
	Stats(ctx context.Context, userID uint) (*HistoryStats, error)
	Get(ctx context.Context, userID, id uint) (*model.UserHistory, error)
	Record(ctx context.Context, userID uint, in HistoryInput) (*model.UserHistory, error)
	Delete(ctx context.Context, userID, id uint) error
	BulkDelete(ctx context.Context, userID uint, ids []uint) (int64, error)
	Clear(ctx context.Context, userID uint, typ string) (int64, error)
}

type historyService struct {
	repo repository.HistoryRepository
}

func NewHistoryService(repo repository.HistoryRepository) HistoryService {
	return &historyService{repo: repo}
}

func (s *historyService) List(ctx context.Context, userID uint, q HistoryQuery) (*HistoryPage, error) {
	p := q.Page.normalize()
	items, total, err := s.repo.ListForUser(ctx, userID, repository.HistoryFilter{
		Type:     q.Type,
		Action:   q.Action,
		Category: q.Category,
		Offset:   p.offset(),
		Limit:    p.PerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return &HistoryPage{Items: items, Total: total, Page: p.Page, PerPage: p.PerPage}, nil
}

func (s *historyService) Stats(ctx context.Context, userID uint) (*HistoryStats, error) {
	counts, err := s.repo.CountByType(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}
	st := &HistoryStats{ByType: counts}
	for _, c := range counts {
		st.Total += c.Count
	}
	return st, nil
}

func (s *historyService) Get(ctx context.Context, userID, id uint) (*model.UserHistory, error) {
	h, err := s.repo.FindForUser(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHistoryNotFound
		}
		return nil, fmt.Errorf("find history: %w", err)
	}
	return h, nil
}

func (s *historyService) Record(ctx context.Context, userID uint, in HistoryInput) (*model.UserHistory, error) {
	h := &model.UserHistory{
		UserID:      userID,
		Type:        in.Type,
		Action:      in.Action,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		RelatedType: in.RelatedType,
		RelatedID:   in.RelatedID,
	}
	if in.Details != nil {
		raw, err := json.Marshal(in.Details)
		if err != nil {
			return nil, fmt.Errorf("encode details: %w", err)
		}
		h.Details = datatypes.JSON(raw)
	}
	if err := s.repo.Create(ctx, h); err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}
	return h, nil
}

func (s *historyService) Delete(ctx context.Context, userID, id uint) error {
	n, err := s.repo.DeleteForUser(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if n == 0 {
		return ErrHistoryNotFound
	}
	return nil
}

func (s *historyService) BulkDelete(ctx context.Context, userID uint, ids []uint) (int64, error) {
	n, err := s.repo.DeleteManyForUser(ctx, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete history: %w", err)
	}
	return n, nil
}

func (s *historyService) Clear(ctx context.Context, userID uint, typ string) (int64, error) {
	n, err := s.repo.DeleteAllForUser(ctx, userID, typ)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return n, nil
}
