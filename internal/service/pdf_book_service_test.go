package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/classifieds-api/config"
	"github.com/d60-Lab/classifieds-api/internal/model"
	"github.com/d60-Lab/classifieds-api/internal/repository"
	tu "github.com/d60-Lab/classifieds-api/internal/testutil"
	"github.com/d60-Lab/classifieds-api/pkg/storage"
)

func newPdfBooks(t *testing.T, maxDownloads, accessDays int) (*pdfBookService, *gorm.DB, *model.PdfBook) {
	db := tu.NewDB(t)
	store, err := storage.NewLocal(t.TempDir(), "http://api.test", "test-signing-key-0123")
	require.NoError(t, err)

	book := &model.PdfBook{Title: "Concurrency in Go", Author: "K. Cox", Price: decimal.RequireFromString("19.99"), FilePath: "books/concurrency.pdf", IsActive: true}
	tu.Must(t, db.Create(book).Error)

	svc := NewPdfBookService(repository.NewPdfBookRepository(db), store,
		config.PDFConfig{DefaultMaxDownloads: maxDownloads, DefaultAccessDays: accessDays}, 10*time.Minute)
	return svc.(*pdfBookService), db, book
}

func TestPurchaseOncePerBook(t *testing.T) {
	svc, _, book := newPdfBooks(t, 3, 30)
	ctx := context.Background()

	p, err := svc.Purchase(ctx, 1, book.ID, tu.StrPtr("pay_123"))
	require.NoError(t, err)
	assert.Equal(t, 3, p.DownloadsRemaining)
	assert.True(t, p.CanDownload)
	assert.True(t, p.AmountPaid.Equal(book.Price))
	require.NotNil(t, p.AccessExpiresAt)
	assert.NotEmpty(t, p.DownloadToken)

	_, err = svc.Purchase(ctx, 1, book.ID, nil)
	assert.ErrorIs(t, err, ErrAlreadyPurchased)

	_, err = svc.Purchase(ctx, 1, book.ID+50, nil)
	assert.ErrorIs(t, err, ErrBookNotFound)

	d, err := svc.Detail(ctx, book.ID, 1)
	require.NoError(t, err)
	assert.True(t, d.Purchased)
	d, err = svc.Detail(ctx, book.ID, 0)
	require.NoError(t, err)
	assert.False(t, d.Purchased)
}

func TestDeliverCountsDownToZero(t *testing.T) {
	svc, _, book := newPdfBooks(t, 2, 0)
	ctx := context.Background()

	p, err := svc.Purchase(ctx, 1, book.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, p.AccessExpiresAt)

	d, err := svc.Deliver(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, d.DownloadsRemaining)
	assert.True(t, strings.HasPrefix(d.DownloadURL, "http://api.test/storage/books/concurrency.pdf?"))
	assert.Equal(t, p.DownloadToken, d.DownloadToken)

	d, err = svc.DownloadByToken(ctx, p.DownloadToken)
	require.NoError(t, err)
	assert.Equal(t, 0, d.DownloadsRemaining)

	_, err = svc.Deliver(ctx, 1, p.ID)
	assert.ErrorIs(t, err, ErrDownloadLimitReached)
	_, err = svc.DownloadByToken(ctx, p.DownloadToken)
	assert.ErrorIs(t, err, ErrDownloadLimitReached)

	list, err := svc.Purchases(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].DownloadsRemaining)
	assert.Equal(t, 2, list[0].DownloadCount)
	assert.False(t, list[0].CanDownload)
}

func TestConcurrentDeliveriesReportTheirOwnRemaining(t *testing.T) {
	svc, _, book := newPdfBooks(t, 4, 0)
	ctx := context.Background()

	p, err := svc.Purchase(ctx, 1, book.ID, nil)
	require.NoError(t, err)

	var (
		mu        sync.Mutex
		remaining []int
		refused   int
		wg        sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := svc.Deliver(ctx, 1, p.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, ErrDownloadLimitReached)
				refused++
				return
			}
			remaining = append(remaining, d.DownloadsRemaining)
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{3, 2, 1, 0}, remaining)
	assert.Equal(t, 6, refused)
}

func TestDeliverRefusedAfterExpiry(t *testing.T) {
	svc, _, book := newPdfBooks(t, 5, 7)
	ctx := context.Background()

	p, err := svc.Purchase(ctx, 1, book.ID, nil)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().AddDate(0, 0, 8) }
	_, err = svc.Deliver(ctx, 1, p.ID)
	assert.ErrorIs(t, err, ErrAccessExpired)

	list, err := svc.Purchases(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, list[0].DownloadCount)
	assert.Equal(t, 5, list[0].DownloadsRemaining)
	assert.False(t, list[0].CanDownload)
}

func TestDeliverRefusesInactiveAndForeignPurchases(t *testing.T) {
	svc, db, book := newPdfBooks(t, 5, 0)
	ctx := context.Background()

	p, err := svc.Purchase(ctx, 1, book.ID, nil)
	require.NoError(t, err)

	_, err = svc.Deliver(ctx, 2, p.ID)
	assert.ErrorIs(t, err, ErrPurchaseNotFound)
	_, err = svc.DownloadByToken(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrPurchaseNotFound)

	require.NoError(t, db.Model(&model.PdfBookPurchase{}).Where("id = ?", p.ID).Update("status", model.PurchaseStatusRefunded).Error)
	_, err = svc.Deliver(ctx, 1, p.ID)
	assert.ErrorIs(t, err, ErrPurchaseInactive)
}

func TestRefusalOrder(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	cases := []struct {
		name string
		p    model.PdfBookPurchase
		want error
	}{
		{"revoked beats expiry", model.PdfBookPurchase{Status: model.PurchaseStatusRevoked, AccessExpiresAt: &past}, ErrPurchaseInactive},
		{"expired", model.PdfBookPurchase{Status: model.PurchaseStatusActive, AccessExpiresAt: &past, MaxDownloads: 1}, ErrAccessExpired},
		{"exhausted", model.PdfBookPurchase{Status: model.PurchaseStatusActive, MaxDownloads: 1, DownloadCount: 1}, ErrDownloadLimitReached},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, refusal(&tc.p, now), tc.want)
		})
	}
}
