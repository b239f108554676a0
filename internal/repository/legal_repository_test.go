package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/classifieds-api/internal/model"
	tu "github.com/d60-Lab/classifieds-api/internal/testutil"
)

func TestUpsertAgreementUpdatesInsteadOfDuplicating(t *testing.T) {
	db := tu.NewDB(t)
	repo := NewLegalRepository(db)
	ctx := context.Background()

	first := &model.LegalAgreement{UserID: 7, DocumentType: model.LegalTermsOfService, DocumentVersion: "1.0", AcceptedAt: time.Now()}
	require.NoError(t, repo.UpsertAgreement(ctx, first))

	second := &model.LegalAgreement{UserID: 7, DocumentType: model.LegalTermsOfService, DocumentVersion: "2.0", AcceptedAt: time.Now(), IPAddress: "10.0.0.1"}
	require.NoError(t, repo.UpsertAgreement(ctx, second))

	var count int64
	require.NoError(t, db.Model(&model.LegalAgreement{}).Where("user_id = ?", 7).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	got, err := repo.AgreementFor(ctx, 7, model.LegalTermsOfService)
	require.NoError(t, err)
	assert.Equal(t, "2.0", got.DocumentVersion)
	assert.Equal(t, "10.0.0.1", got.IPAddress)
}

func TestCurrentDocumentIsLatestActive(t *testing.T) {
	db := tu.NewDB(t)
	repo := NewLegalRepository(db)
	ctx := context.Background()
	now := time.Now()

	tu.Must(t, db.Create(&model.LegalDocument{Type: model.LegalPrivacyPolicy, Title: "Privacy", Content: "v1", Version: "1.0", IsActive: true, CreatedAt: now.Add(-time.Hour)}).Error)
	tu.Must(t, db.Create(&model.LegalDocument{Type: model.LegalPrivacyPolicy, Title: "Privacy", Content: "v2", Version: "2.0", IsActive: true, CreatedAt: now}).Error)
	tu.Must(t, db.Create(&model.LegalDocument{Type: model.LegalPrivacyPolicy, Title: "Privacy", Content: "draft", Version: "3.0", IsActive: false, CreatedAt: now.Add(time.Hour)}).Error)
	tu.Must(t, db.Create(&model.LegalDocument{Type: model.LegalTermsOfService, Title: "Terms", Content: "t", Version: "1.0", IsActive: true}).Error)

	doc, err := repo.CurrentByType(ctx, model.LegalPrivacyPolicy)
	require.NoError(t, err)
	assert.Equal(t, "2.0", doc.Version)

	all, err := repo.CurrentAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2.0", all[0].Version)
	assert.Equal(t, model.LegalTermsOfService, all[1].Type)
}

func TestActiveVersionIgnoresInactiveDrafts(t *testing.T) {
	db := tu.NewDB(t)
	repo := NewLegalRepository(db)
	ctx := context.Background()

	tu.Must(t, db.Create(&model.LegalDocument{Type: model.LegalRefundPolicy, Title: "Refunds", Content: "v1", Version: "1.0", IsActive: true}).Error)
	tu.Must(t, db.Create(&model.LegalDocument{Type: model.LegalRefundPolicy, Title: "Refunds", Content: "draft", Version: "2.0", IsActive: false}).Error)

	doc, err := repo.ActiveVersion(ctx, model.LegalRefundPolicy, "1.0")
	require.NoError(t, err)
	assert.Equal(t, "v1", doc.Content)

	_, err = repo.ActiveVersion(ctx, model.LegalRefundPolicy, "2.0")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.ActiveVersion(ctx, model.LegalCookiePolicy, "1.0")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
