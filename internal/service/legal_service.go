package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/classifieds-api/internal/model"
	"github.com/d60-Lab/classifieds-api/internal/repository"
	"github.com/d60-Lab/classifieds-api/pkg/cache"
)

// LegalSummary 文档列表项（不含正文）
type LegalSummary struct {
	Type          string     `json:"type"`
	Title         string     `json:"title"`
	Version       string     `json:"version"`
	EffectiveDate *time.Time `json:"effective_date"`
}

// AgreementInput 同意请求；Version 为空时取当前版本
type AgreementInput struct {
	DocumentType string
	Version      string
	IPAddress    string
	UserAgent    string
}

// AgreementStatus 某类文档的同意状态
type AgreementStatus struct {
	DocumentType    string     `json:"document_type"`
	CurrentVersion  string     `json:"current_version"`
	AcceptedVersion *string    `json:"accepted_version"`
	AcceptedAt      *time.Time `json:"accepted_at"`
	UpToDate        bool       `json:"up_to_date"`
}

type LegalService interface {
	Documents(ctx context.Context) ([]LegalSummary, error)
	Document(ctx context.Context, documentType string) (*model.LegalDocument, error)
	Accept(ctx context.Context, userID uint, in AgreementInput) (*model.LegalAgreement, error)
	Agreements(ctx context.Context, userID uint) ([]*model.LegalAgreement, error)
	Status(ctx context.Context, userID uint) ([]AgreementStatus, error)
}

type legalService struct {
	repo  repository.LegalRepository
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewLegalService(repo repository.LegalRepository, c *cache.Cache, ttl time.Duration) LegalService {
	return &legalService{repo: repo, cache: c, ttl: ttl, now: time.Now}
}

// NormalizeDocumentType 允许 URL 中使用连字符：terms-of-service -> terms_of_service
func NormalizeDocumentType(t string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t)), "-", "_")
}

// KnownDocumentType 是否为支持的文档类型（已规范化）
func KnownDocumentType(t string) bool {
	for _, k := range model.LegalDocumentTypes {
		if k == t {
			return true
		}
	}
	return false
}

func (s *legalService) Documents(ctx context.Context) ([]LegalSummary, error) {
	docs, err := s.repo.CurrentAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list legal documents: %w", err)
	}
	out := make([]LegalSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, LegalSummary{Type: d.Type, Title: d.Title, Version: d.Version, EffectiveDate: d.EffectiveDate})
	}
	return out, nil
}

func (s *legalService) Document(ctx context.Context, documentType string) (*model.LegalDocument, error) {
	typ := NormalizeDocumentType(documentType)
	if !KnownDocumentType(typ) {
		return nil, ErrLegalDocumentNotFound
	}
	return cache.Remember(ctx, s.cache, "legal:"+typ, s.ttl, func(ctx context.Context) (*model.LegalDocument, error) {
		return s.current(ctx, typ)
	})
}

func (s *legalService) current(ctx context.Context, typ string) (*model.LegalDocument, error) {
	doc, err := s.repo.CurrentByType(ctx, typ)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLegalDocumentNotFound
		}
		return nil, fmt.Errorf("find legal document: %w", err)
	}
	return doc, nil
}

func (s *legalService) Accept(ctx context.Context, userID uint, in AgreementInput) (*model.LegalAgreement, error) {
	typ := NormalizeDocumentType(in.DocumentType)
	if !KnownDocumentType(typ) {
		return nil, ErrLegalDocumentNotFound
	}
	doc, err := s.current(ctx, typ)
	if err != nil {
		return nil, err
	}

	// 只接受当前或其他仍启用的版本，并关联到该版本的文档
	if version := strings.TrimSpace(in.Version); version != "" && version != doc.Version {
		doc, err = s.repo.ActiveVersion(ctx, typ, version)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUnknownDocumentVersion
			}
			return nil, fmt.Errorf("find legal document version: %w", err)
		}
	}
	now := s.now()
	a := &model.LegalAgreement{
		UserID:          userID,
		DocumentType:    typ,
		DocumentVersion: doc.Version,
		LegalDocumentID: &doc.ID,
		AcceptedAt:      now,
		IPAddress:       in.IPAddress,
		UserAgent:       in.UserAgent,
	}
	if err := s.repo.UpsertAgreement(ctx, a); err != nil {
		return nil, fmt.Errorf("upsert agreement: %w", err)
	}
	// upsert 后主键不一定回填，重新读取
	saved, err := s.repo.AgreementFor(ctx, userID, typ)
	if err != nil {
		return nil, fmt.Errorf("reload agreement: %w", err)
	}
	return saved, nil
}

func (s *legalService) Agreements(ctx context.Context, userID uint) ([]*model.LegalAgreement, error) {
	res, err := s.repo.AgreementsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list agreements: %w", err)
	}
	return res, nil
}

func (s *legalService) Status(ctx context.Context, userID uint) ([]AgreementStatus, error) {
	docs, err := s.repo.CurrentAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list legal documents: %w", err)
	}
	agreements, err := s.repo.AgreementsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list agreements: %w", err)
	}
	byType := make(map[string]*model.LegalAgreement, len(agreements))
	for _, a := range agreements {
		byType[a.DocumentType] = a
	}

	out := make([]AgreementStatus, 0, len(docs))
	for _, d := range docs {
		st := AgreementStatus{DocumentType: d.Type, CurrentVersion: d.Version}
		if a, ok := byType[d.Type]; ok {
			v, at := a.DocumentVersion, a.AcceptedAt
			st.AcceptedVersion = &v
			st.AcceptedAt = &at
			st.UpToDate = v == d.Version
		}
		out = append(out, st)
	}
	return out, nil
}
