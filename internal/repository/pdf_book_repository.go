package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/classifieds-api/internal/model"
)

// PdfBookRepository 电子书与购买记录
type PdfBookRepository interface {
	// ListActive 在售电子书，q 匹配标题/作者
	ListActive(ctx context.Context, q string, offset, limit int) ([]*model.PdfBook, int64, error)

	// FindActive 根据ID查询在售电子书
	FindActive(ctx context.Context, id uint) (*model.PdfBook, error)

	// CreatePurchase 创建购买记录
	CreatePurchase(ctx context.Context, p *model.PdfBookPurchase) error

	// HasActivePurchase 用户是否持有该书的有效授权
	HasActivePurchase(ctx context.Context, userID, bookID uint) (bool, error)

	// PurchasesForUser 用户的全部购买记录
	PurchasesForUser(ctx context.Context, userID uint) ([]*model.PdfBookPurchase, error)

	// FindPurchaseForUser 按ID查询，且必须属于该用户
	FindPurchaseForUser(ctx context.Context, userID, purchaseID uint) (*model.PdfBookPurchase, error)

	// FindPurchaseByToken 按下载令牌查询
	FindPurchaseByToken(ctx context.Context, token string) (*model.PdfBookPurchase, error)

	// ConsumeDownload 原子地检查闸门并自增下载次数，返回是否成功以及本次操作后的记录
	ConsumeDownload(ctx context.Context, purchaseID uint, now time.Time) (*model.PdfBookPurchase, bool, error)
}

type pdfBookRepository struct{ db *gorm.DB }

func NewPdfBookRepository(db *gorm.DB) PdfBookRepository { return &pdfBookRepository{db: db} }

func (r *pdfBookRepository) ListActive(ctx context.Context, q string, offset, limit int) ([]*model.PdfBook, int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.PdfBook{}).Where("is_active = ?", true)
	if term := strings.TrimSpace(q); term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		tx = tx.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(author) LIKE ? ESCAPE '!')", like, like)
	}

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var books []*model.PdfBook
	err := tx.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&books).Error
	return books, total, err
}

func (r *pdfBookRepository) FindActive(ctx context.Context, id uint) (*model.PdfBook, error) {
	var b model.PdfBook
	if err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *pdfBookRepository) CreatePurchase(ctx context.Context, p *model.PdfBookPurchase) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *pdfBookRepository) HasActivePurchase(ctx context.Context, userID, bookID uint) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.PdfBookPurchase{}).
		Where("user_id = ? AND pdf_book_id = ? AND status = ?", userID, bookID, model.PurchaseStatusActive).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *pdfBookRepository) PurchasesForUser(ctx context.Context, userID uint) ([]*model.PdfBookPurchase, error) {
	var res []*model.PdfBookPurchase
	err := r.db.WithContext(ctx).
		Preload("PdfBook").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&res).Error
	return res, err
}

func (r *pdfBookRepository) FindPurchaseForUser(ctx context.Context, userID, purchaseID uint) (*model.PdfBookPurchase, error) {
	var p model.PdfBookPurchase
	err := r.db.WithContext(ctx).Preload("PdfBook").Where("id = ? AND user_id = ?", purchaseID, userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pdfBookRepository) FindPurchaseByToken(ctx context.Context, token string) (*model.PdfBookPurchase, error) {
	var p model.PdfBookPurchase
	if err := r.db.WithContext(ctx).Preload("PdfBook").Where("download_token = ?", token).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ConsumeDownload 用一条条件 UPDATE 完成“检查 + 自增”，并发下载不会超出配额。
// 同一事务内读回的行仍被 UPDATE 锁住，得到的是本次调用之后的计数。
func (r *pdfBookRepository) ConsumeDownload(ctx context.Context, purchaseID uint, now time.Time) (*model.PdfBookPurchase, bool, error) {
	var (
		p  model.PdfBookPurchase
		ok bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.PdfBookPurchase{}).
			Where("id = ? AND status = ? AND download_count < max_downloads AND (access_expires_at IS NULL OR access_expires_at > ?)",
				purchaseID, model.PurchaseStatusActive, now).
			UpdateColumns(map[string]interface{}{
				"download_count":     gorm.Expr("download_count + ?", 1),
				"last_downloaded_at": now,
				"updated_at":         now,
			})
		if res.Error != nil {
			return res.Error
		}
		ok = res.RowsAffected == 1
		return tx.First(&p, purchaseID).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &p, ok, nil
}
