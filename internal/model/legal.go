package model

import (
	"time"

	"gorm.io/datatypes"
)

// LegalDocument 法律文本（按类型分版本）
type LegalDocument struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Type          string         `json:"type" gorm:"size:50;not null;index:idx_legal_type_active,priority:1"`
	Title         string         `json:"title" gorm:"size:255;not null"`
	Content       string         `json:"content" gorm:"type:text;not null"`
	Version       string         `json:"version" gorm:"size:20;not null"`
	IsActive      bool           `json:"is_active" gorm:"not null;index:idx_legal_type_active,priority:2"`
	EffectiveDate *time.Time     `json:"effective_date"`
	Metadata      datatypes.JSON `json:"metadata,omitempty" gorm:"type:json" swaggertype:"object"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (LegalDocument) TableName() string { return "legal_documents" }

const (
	LegalPrivacyPolicy       = "privacy_policy"
	LegalTermsOfService      = "terms_of_service"
	LegalCookiePolicy        = "cookie_policy"
	LegalRefundPolicy        = "refund_policy"
	LegalCommunityGuidelines = "community_guidelines"
)

// LegalDocumentTypes 允许的文档类型
var LegalDocumentTypes = []string{
	LegalPrivacyPolicy,
	LegalTermsOfService,
	LegalCookiePolicy,
	LegalRefundPolicy,
	LegalCommunityGuidelines,
}

// LegalAgreement 用户对某类文档的同意记录，(user_id, document_type) 唯一
type LegalAgreement struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	UserID          uint      `json:"user_id" gorm:"not null;uniqueIndex:ux_agreement_user_type,priority:1"`
	DocumentType    string    `json:"document_type" gorm:"size:50;not null;uniqueIndex:ux_agreement_user_type,priority:2"`
	DocumentVersion string    `json:"document_version" gorm:"size:20;not null"`
	LegalDocumentID *uint     `json:"legal_document_id"`
	AcceptedAt      time.Time `json:"accepted_at" gorm:"not null"`
	IPAddress       string    `json:"ip_address,omitempty" gorm:"size:64"`
	UserAgent       string    `json:"user_agent,omitempty" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (LegalAgreement) TableName() string { return "legal_agreements" }
