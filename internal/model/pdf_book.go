package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PdfBook 可售电子书
type PdfBook struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Title       string          `json:"title" gorm:"size:255;not null;index"`
	Author      string          `json:"author" gorm:"size:255"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null" swaggertype:"string" example:"9.99"`
	CoverPath   string          `json:"-" gorm:"size:512"`
	FilePath    string          `json:"-" gorm:"size:512;not null"`
	FileSize    int64           `json:"file_size"`
	PageCount   int             `json:"page_count"`
	IsActive    bool            `json:"is_active" gorm:"not null;index"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (PdfBook) TableName() string { return "pdf_books" }

// PdfBookPurchase 购买授权：下载次数配额 + 访问有效期
type PdfBookPurchase struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	UserID           uint            `json:"user_id" gorm:"not null;index:idx_purchase_user_book,priority:1"`
	PdfBookID        uint            `json:"pdf_book_id" gorm:"not null;index:idx_purchase_user_book,priority:2"`
	Status           string          `json:"status" gorm:"size:20;not null;index"`
	AmountPaid       decimal.Decimal `json:"amount_paid" gorm:"type:decimal(10,2);not null" swaggertype:"string" example:"9.99"`
	PaymentReference *string         `json:"payment_reference,omitempty" gorm:"size:255"`
	DownloadToken    string          `json:"-" gorm:"size:64;uniqueIndex;not null"`
	MaxDownloads     int             `json:"max_downloads" gorm:"not null"`
	DownloadCount    int             `json:"download_count" gorm:"not null"`
	AccessExpiresAt  *time.Time      `json:"access_expires_at"`
	LastDownloadedAt *time.Time      `json:"last_downloaded_at"`
	PdfBook          *PdfBook        `json:"pdf_book,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (PdfBookPurchase) TableName() string { return "pdf_book_purchases" }

// 购买状态
const (
	PurchaseStatusActive   = "active"
	PurchaseStatusRevoked  = "revoked"
	PurchaseStatusRefunded = "refunded"
)

// DownloadsRemaining 剩余下载次数，不小于 0
func (p *PdfBookPurchase) DownloadsRemaining() int {
	if r := p.MaxDownloads - p.DownloadCount; r > 0 {
		return r
	}
	return 0
}

// ExpiredAt reports whether the access window has closed at t.
func (p *PdfBookPurchase) ExpiredAt(t time.Time) bool {
	return p.AccessExpiresAt != nil && !t.Before(*p.AccessExpiresAt)
}

// CanDownloadAt 下载闸门：active 且未用尽且未过期
func (p *PdfBookPurchase) CanDownloadAt(t time.Time) bool {
	return p.Status == PurchaseStatusActive && p.DownloadCount < p.MaxDownloads && !p.ExpiredAt(t)
}
