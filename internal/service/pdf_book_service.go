package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/classifieds-api/config"
	"github.com/d60-Lab/classifieds-api/internal/model"
	"github.com/d60-Lab/classifieds-api/internal/repository"
	"github.com/d60-Lab/classifieds-api/pkg/logger"
	"github.com/d60-Lab/classifieds-api/pkg/metrics"
	"github.com/d60-Lab/classifieds-api/pkg/storage"
)

// 下载渠道，用于指标标签
const (
	ChannelDeliver = "deliver"
	ChannelToken   = "token"
)

type BookPage struct {
	Books   []*model.PdfBook
	Total   int64
	Page    int
	PerPage int
}

// BookDetail 电子书详情，Purchased 表示当前用户是否持有有效授权
type BookDetail struct {
	*model.PdfBook
	Purchased bool `json:"purchased"`
}

// PurchaseView 购买记录 + 剩余下载次数
type PurchaseView struct {
	*model.PdfBookPurchase
	DownloadsRemaining int  `json:"downloads_remaining"`
	CanDownload        bool `json:"can_download"`
}

func newPurchaseView(p *model.PdfBookPurchase, now time.Time) PurchaseView {
	return PurchaseView{PdfBookPurchase: p, DownloadsRemaining: p.DownloadsRemaining(), CanDownload: p.CanDownloadAt(now)}
}

// Delivery 一次成功的下载授权
type Delivery struct {
	DownloadURL        string     `json:"download_url"`
	DownloadToken      string     `json:"download_token"`
	DownloadsRemaining int        `json:"downloads_remaining"`
	AccessExpiresAt    *time.Time `json:"access_expires_at"`
	LinkExpiresAt      time.Time  `json:"link_expires_at"`
}

type PdfBookService interface {
	List(ctx context.Context, q string, page Page) (*BookPage, error)
	// Detail userID 为 0 表示匿名访问
	Detail(ctx context.Context, id, userID uint) (*BookDetail, error)
	Purchase(ctx context.Context, userID, bookID uint, paymentReference *string) (*PurchaseView, error)
	Purchases(ctx context.Context, userID uint) ([]PurchaseView, error)
	Deliver(ctx context.Context, userID, purchaseID uint) (*Delivery, error)
	DownloadByToken(ctx context.Context, token string) (*Delivery, error)
}

type pdfBookService struct {
	repo    repository.PdfBookRepository
	store   storage.Storage
	cfg     config.PDFConfig
	linkTTL time.Duration
	now     func() time.Time
}

func NewPdfBookService(repo repository.PdfBookRepository, store storage.Storage, cfg config.PDFConfig, linkTTL time.Duration) PdfBookService {
	if linkTTL <= 0 {
		linkTTL = 15 * time.Minute
	}
	return &pdfBookService{repo: repo, store: store, cfg: cfg, linkTTL: linkTTL, now: time.Now}
}

func (s *pdfBookService) List(ctx context.Context, q string, page Page) (*BookPage, error) {
	p := page.normalize()
	books, total, err := s.repo.ListActive(ctx, q, p.offset(), p.PerPage)
	if err != nil {
		return nil, fmt.Errorf("list pdf books: %w", err)
	}
	return &BookPage{Books: books, Total: total, Page: p.Page, PerPage: p.PerPage}, nil
}

func (s *pdfBookService) Detail(ctx context.Context, id, userID uint) (*BookDetail, error) {
	book, err := s.findBook(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &BookDetail{PdfBook: book}
	if userID != 0 {
		if d.Purchased, err = s.repo.HasActivePurchase(ctx, userID, id); err != nil {
			return nil, fmt.Errorf("check purchase: %w", err)
		}
	}
	return d, nil
}

func (s *pdfBookService) findBook(ctx context.Context, id uint) (*model.PdfBook, error) {
	book, err := s.repo.FindActive(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("find pdf book: %w", err)
	}
	return book, nil
}

func (s *pdfBookService) Purchase(ctx context.Context, userID, bookID uint, paymentReference *string) (*PurchaseView, error) {
	book, err := s.findBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	owned, err := s.repo.HasActivePurchase(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("check purchase: %w", err)
	}
	if owned {
		return nil, ErrAlreadyPurchased
	}

	p := &model.PdfBookPurchase{
		UserID:           userID,
		PdfBookID:        bookID,
		Status:           model.PurchaseStatusActive,
		AmountPaid:       book.Price,
		PaymentReference: paymentReference,
		DownloadToken:    uuid.NewString(),
		MaxDownloads:     s.cfg.DefaultMaxDownloads,
	}
	if s.cfg.DefaultAccessDays > 0 {
		exp := s.now().AddDate(0, 0, s.cfg.DefaultAccessDays)
		p.AccessExpiresAt = &exp
	}
	if err := s.repo.CreatePurchase(ctx, p); err != nil {
		return nil, fmt.Errorf("create purchase: %w", err)
	}
	p.PdfBook = book

	logger.Info("pdf book purchased",
		zap.Uint("user_id", userID),
		zap.Uint("pdf_book_id", bookID),
		zap.Uint("purchase_id", p.ID),
	)
	v := newPurchaseView(p, s.now())
	return &v, nil
}

func (s *pdfBookService) Purchases(ctx context.Context, userID uint) ([]PurchaseView, error) {
	list, err := s.repo.PurchasesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	now := s.now()
	out := make([]PurchaseView, len(list))
	for i, p := range list {
		out[i] = newPurchaseView(p, now)
	}
	return out, nil
}

func (s *pdfBookService) Deliver(ctx context.Context, userID, purchaseID uint) (*Delivery, error) {
	p, err := s.repo.FindPurchaseForUser(ctx, userID, purchaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("find purchase: %w", err)
	}
	return s.deliver(ctx, p, ChannelDeliver)
}

func (s *pdfBookService) DownloadByToken(ctx context.Context, token string) (*Delivery, error) {
	if token == "" {
		return nil, ErrPurchaseNotFound
	}
	p, err := s.repo.FindPurchaseByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("find purchase: %w", err)
	}
	return s.deliver(ctx, p, ChannelToken)
}

// deliver 先签发链接，再用一条条件 UPDATE 扣减配额；失败时按读回的记录区分原因
func (s *pdfBookService) deliver(ctx context.Context, p *model.PdfBookPurchase, channel string) (*Delivery, error) {
	if p.PdfBook == nil || p.PdfBook.FilePath == "" {
		metrics.PdfDeliveries.WithLabelValues(channel, "missing_file").Inc()
		return nil, ErrFileMissing
	}

	now := s.now()
	link, err := s.store.SignedURL(ctx, p.PdfBook.FilePath, s.linkTTL)
	if err != nil {
		return nil, fmt.Errorf("sign download link: %w", err)
	}

	current, ok, err := s.repo.ConsumeDownload(ctx, p.ID, now)
	if err != nil {
		return nil, fmt.Errorf("consume download: %w", err)
	}

	if !ok {
		reason := refusal(current, now)
		metrics.PdfDeliveries.WithLabelValues(channel, refusalLabel(reason)).Inc()
		logger.Info("pdf delivery refused",
			zap.Uint("purchase_id", p.ID),
			zap.String("channel", channel),
			zap.Error(reason),
		)
		return nil, reason
	}

	metrics.PdfDeliveries.WithLabelValues(channel, "delivered").Inc()
	return &Delivery{
		DownloadURL:        link,
		DownloadToken:      current.DownloadToken,
		DownloadsRemaining: current.DownloadsRemaining(),
		AccessExpiresAt:    current.AccessExpiresAt,
		LinkExpiresAt:      now.Add(s.linkTTL),
	}, nil
}

// refusal 闸门拒绝的原因，按状态、有效期、次数的顺序判断
func refusal(p *model.PdfBookPurchase, now time.Time) error {
	switch {
	case p.Status != model.PurchaseStatusActive:
		return ErrPurchaseInactive
	case p.ExpiredAt(now):
		return ErrAccessExpired
	default:
		return ErrDownloadLimitReached
	}
}

func refusalLabel(err error) string {
	switch {
	case errors.Is(err, ErrPurchaseInactive):
		return "inactive"
	case errors.Is(err, ErrAccessExpired):
		return "expired"
	default:
		return "exhausted"
	}
}
