package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/classifieds-api/internal/model"
)

// HistoryFilter 历史列表过滤条件
type HistoryFilter struct {
	Type     string
	Action   string
	Category string
	Offset   int
	Limit    int
}

type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// HistoryRepository 所有方法都以 userID 作为范围，防止跨用户访问
type HistoryRepository interface {
	Create(ctx context.Context, h *model.UserHistory) error
	FindForUser(ctx context.Context, userID, id uint) (*model.UserHistory, error)
	ListForUser(ctx context.Context, userID uint, f HistoryFilter) ([]*model.UserHistory, int64, error)
	CountByType(ctx context.Context, userID uint) ([]TypeCount, error)
	DeleteForUser(ctx context.Context, userID, id uint) (int64, error)
	DeleteManyForUser(ctx context.Context, userID uint, ids []uint) (int64, error)
	DeleteAllForUser(ctx context.Context, userID uint, typ string) (int64, error)
}

type historyRepository struct{ db *gorm.DB }

func NewHistoryRepository(db *gorm.DB) HistoryRepository { return &historyRepository{db: db} }

func (r *historyRepository) Create(ctx context.Context, h *model.UserHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *historyRepository) FindForUser(ctx context.Context, userID, id uint) (*model.UserHistory, error) {
	var h model.UserHistory
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&h).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *historyRepository) ListForUser(ctx context.Context, userID uint, f HistoryFilter) ([]*model.UserHistory, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.UserHistory{}).Where("user_id = ?", userID)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var res []*model.UserHistory
	err := q.Order("created_at DESC").Order("id DESC").Offset(f.Offset).Limit(f.Limit).Find(&res).Error
	return res, total, err
}

func (r *historyRepository) CountByType(ctx context.Context, userID uint) ([]TypeCount, error) {
	var rows []TypeCount
	err := r.db.WithContext(ctx).
		Model(&model.UserHistory{}).
		Select("type, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("type").
		Order("type").
		Scan(&rows).Error
	return rows, err
}

func (r *historyRepository) DeleteForUser(ctx context.Context, userID, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.UserHistory{})
	return res.RowsAffected, res.Error
}

func (r *historyRepository) DeleteManyForUser(ctx context.Context, userID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, ids).Delete(&model.UserHistory{})
	return res.RowsAffected, res.Error
}

func (r *historyRepository) DeleteAllForUser(ctx context.Context, userID uint, typ string) (int64, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if typ != "" {
		q = q.Where("type = ?", typ)
	}
	res := q.Delete(&model.UserHistory{})
	return res.RowsAffected, res.Error
}
