package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/classifieds-api/internal/model"
)

type LegalRepository interface {
	CurrentByType(ctx context.Context, typ string) (*model.LegalDocument, error)
	CurrentAll(ctx context.Context) ([]*model.LegalDocument, error)
	ActiveVersion(ctx context.Context, typ, version string) (*model.LegalDocument, error)
	UpsertAgreement(ctx context.Context, a *model.LegalAgreement) error
	AgreementsForUser(ctx context.Context, userID uint) ([]*model.LegalAgreement, error)
	AgreementFor(ctx context.Context, userID uint, typ string) (*model.LegalAgreement, error)
}

type legalRepository struct{ db *gorm.DB }

func NewLegalRepository(db *gorm.DB) LegalRepository { return &legalRepository{db: db} }

// CurrentByType 最新启用版本
func (r *legalRepository) CurrentByType(ctx context.Context, typ string) (*model.LegalDocument, error) {
	var d model.LegalDocument
	err := r.db.WithContext(ctx).
		Where("type = ? AND is_active = ?", typ, true).
		Order("created_at DESC").
		Order("id DESC").
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CurrentAll 每种类型的最新启用版本
func (r *legalRepository) CurrentAll(ctx context.Context) ([]*model.LegalDocument, error) {
	var all []*model.LegalDocument
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("type").
		Order("created_at DESC").
		Order("id DESC").
		Find(&all).Error
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(all))
	res := make([]*model.LegalDocument, 0, len(all))
	for _, d := range all {
		if seen[d.Type] {
			continue
		}
		seen[d.Type] = true
		res = append(res, d)
	}
	return res, nil
}

// ActiveVersion 某类型下指定的启用版本
func (r *legalRepository) ActiveVersion(ctx context.Context, typ, version string) (*model.LegalDocument, error) {
	var d model.LegalDocument
	err := r.db.WithContext(ctx).
		Where("type = ? AND version = ? AND is_active = ?", typ, version, true).
		Order("id DESC").
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpsertAgreement 幂等：同一 (user_id, document_type) 只保留一行
func (r *legalRepository) UpsertAgreement(ctx context.Context, a *model.LegalAgreement) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "document_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"document_version", "legal_document_id", "accepted_at", "ip_address", "user_agent", "updated_at",
		}),
	}).Create(a).Error
}

func (r *legalRepository) AgreementsForUser(ctx context.Context, userID uint) ([]*model.LegalAgreement, error) {
	var res []*model.LegalAgreement
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("document_type").Find(&res).Error
	return res, err
}

func (r *legalRepository) AgreementFor(ctx context.Context, userID uint, typ string) (*model.LegalAgreement, error) {
	var a model.LegalAgreement
	if err := r.db.WithContext(ctx).Where("user_id = ? AND document_type = ?", userID, typ).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}
