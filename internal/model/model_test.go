package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDownloadsRemainingClampsAtZero(t *testing.T) {
	p := &PdfBookPurchase{MaxDownloads: 3, DownloadCount: 1}
	assert.Equal(t, 2, p.DownloadsRemaining())

	p.DownloadCount = 3
	assert.Equal(t, 0, p.DownloadsRemaining())

	p.DownloadCount = 7
	assert.Equal(t, 0, p.DownloadsRemaining())
}

func TestCanDownloadAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	cases := []struct {
		name string
		p    PdfBookPurchase
		want bool
	}{
		{"active no expiry", PdfBookPurchase{Status: PurchaseStatusActive, MaxDownloads: 2}, true},
		{"active before expiry", PdfBookPurchase{Status: PurchaseStatusActive, MaxDownloads: 2, AccessExpiresAt: &future}, true},
		{"expired", PdfBookPurchase{Status: PurchaseStatusActive, MaxDownloads: 2, AccessExpiresAt: &past}, false},
		{"expires exactly now", PdfBookPurchase{Status: PurchaseStatusActive, MaxDownloads: 2, AccessExpiresAt: &now}, false},
		{"exhausted", PdfBookPurchase{Status: PurchaseStatusActive, MaxDownloads: 2, DownloadCount: 2}, false},
		{"revoked", PdfBookPurchase{Status: PurchaseStatusRevoked, MaxDownloads: 2}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.p.CanDownloadAt(now))
		})
	}
}

func TestItemPromotedAt(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&Item{}).PromotedAt(now))
	assert.True(t, (&Item{IsPromoted: true}).PromotedAt(now))
	assert.True(t, (&Item{IsPromoted: true, PromotedUntil: &future}).PromotedAt(now))
	assert.False(t, (&Item{IsPromoted: true, PromotedUntil: &past}).PromotedAt(now))
}
