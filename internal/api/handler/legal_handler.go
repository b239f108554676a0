package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/classifieds-api/internal/api/middleware"
	"github.com/d60-Lab/classifieds-api/internal/service"
	"github.com/d60-Lab/classifieds-api/pkg/response"
)

type agreementRequest struct {
	DocumentType string `json:"document_type" binding:"required,max=50"`
	Version      string `json:"version" binding:"omitempty,max=20"`
}

// LegalDocuments 当前有效的法律文档
// @Summary 法律文档列表
// @Tags 法律文档
// @Produce json
// @Success 200 {object} response.Response{data=[]service.LegalSummary}
// @Router /legal [get]
func (h *Handler) LegalDocuments(c *gin.Context) {
	docs, err := h.legal.Documents(c.Request.Context())
	if err != nil {
		h.fail(c, "legal_documents", err)
		return
	}
	response.Success(c, docs)
}

// LegalDocument 某类文档的最新版本
// @Summary 获取法律文档
// @Tags 法律文档
// @Produce json
// @Param document_type path string true "文档类型，如 privacy-policy"
// @Success 200 {object} response.Response{data=model.LegalDocument}
// @Failure 404 {object} response.Response
// @Router /legal/{document_type} [get]
func (h *Handler) LegalDocument(c *gin.Context) {
	typ := c.Param("document_type")
	doc, err := h.legal.Document(c.Request.Context(), typ)
	if err != nil {
		h.fail(c, "legal_document", err, zap.String("document_type", typ))
		return
	}
	response.Success(c, doc)
}

// AcceptAgreement 同意某类文档（重复提交会覆盖）
// @Summary 同意法律文档
// @Tags 法律文档
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body agreementRequest true "文档类型与版本"
// @Success 200 {object} response.Response{data=model.LegalAgreement}
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /legal/agreement [post]
func (h *Handler) AcceptAgreement(c *gin.Context) {
	var req agreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}
	if !service.KnownDocumentType(service.NormalizeDocumentType(req.DocumentType)) {
		response.ValidationFailed(c, map[string][]string{"document_type": {"The selected document type is invalid."}})
		return
	}
	a, err := h.legal.Accept(c.Request.Context(), middleware.UserID(c), service.AgreementInput{
		DocumentType: req.DocumentType,
		Version:      req.Version,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})
	if errors.Is(err, service.ErrUnknownDocumentVersion) {
		response.ValidationFailed(c, map[string][]string{"version": {"The selected version is invalid."}})
		return
	}
	if err != nil {
		h.fail(c, "legal_accept", err, zap.String("document_type", req.DocumentType))
		return
	}
	response.SuccessWithMessage(c, "Agreement recorded", a)
}

// Agreements 当前用户的同意记录
// @Summary 我的同意记录
// @Tags 法律文档
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.LegalAgreement}
// @Router /legal/agreements [get]
func (h *Handler) Agreements(c *gin.Context) {
	list, err := h.legal.Agreements(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, "legal_agreements", err)
		return
	}
	response.Success(c, list)
}

// AgreementStatus 每类文档是否已同意最新版本
// @Summary 同意状态
// @Tags 法律文档
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]service.AgreementStatus}
// @Router /legal/agreement/status [get]
func (h *Handler) AgreementStatus(c *gin.Context) {
	st, err := h.legal.Status(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, "legal_status", err)
		return
	}
	response.Success(c, st)
}
