package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/classifieds-api/internal/api/middleware"
	"github.com/d60-Lab/classifieds-api/pkg/response"
)

type bookListQuery struct {
	Q string `form:"q" binding:"omitempty,max=100"`
	pageQuery
}

type purchaseRequest struct {
	PaymentReference *string `json:"payment_reference" binding:"omitempty,max=255"`
}

type deliverRequest struct {
	PurchaseID uint `json:"purchase_id" binding:"required,gt=0"`
}

// ListBooks 在售电子书
// @Summary 电子书列表
// @Tags 电子书
// @Produce json
// @Param q query string false "标题/作者"
// @Param page query int false "页码" default(1)
// @Param per_page query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=[]model.PdfBook}
// @Router /api/pdf-books [get]
func (h *Handler) ListBooks(c *gin.Context) {
	var q bookListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err)
		return
	}
	page, err := h.books.List(c.Request.Context(), q.Q, q.page())
	if err != nil {
		h.fail(c, "pdf_books_list", err)
		return
	}
	response.Paginated(c, page.Books, response.NewPagination(page.Page, page.PerPage, page.Total))
}

// BookDetail 电子书详情；登录用户附带是否已购买
// @Summary 电子书详情
// @Tags 电子书
// @Produce json
// @Param id path int true "电子书ID"
// @Success 200 {object} response.Response{data=service.BookDetail}
// @Failure 404 {object} response.Response
// @Router /api/pdf-books/{id} [get]
func (h *Handler) BookDetail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.books.Detail(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.fail(c, "pdf_book_detail", err, zap.Uint("pdf_book_id", id))
		return
	}
	response.Success(c, d)
}

// PurchaseBook 购买（支付在外部完成）
// @Summary 购买电子书
// @Tags 电子书
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "电子书ID"
// @Param request body purchaseRequest false "支付凭证"
// @Success 201 {object} response.Response{data=service.PurchaseView}
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/pdf-books/{id}/purchase [post]
func (h *Handler) PurchaseBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req purchaseRequest
	if hasBody(c) {
		// 分块传输时 ContentLength 为 -1，空 body 读到 EOF 视为未提交
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.ValidationError(c, err)
			return
		}
	}
	p, err := h.books.Purchase(c.Request.Context(), middleware.UserID(c), id, req.PaymentReference)
	if err != nil {
		h.fail(c, "pdf_book_purchase", err, zap.Uint("pdf_book_id", id))
		return
	}
	response.Created(c, p)
}

// Purchases 我的购买记录
// @Summary 购买记录
// @Tags 电子书
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]service.PurchaseView}
// @Router /api/pdf-books/purchases [get]
func (h *Handler) Purchases(c *gin.Context) {
	list, err := h.books.Purchases(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, "pdf_book_purchases", err)
		return
	}
	response.Success(c, list)
}

// Deliver 消耗一次下载配额并返回直链
// @Summary 获取下载链接
// @Tags 电子书
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body deliverRequest true "购买ID"
// @Success 200 {object} response.Response{data=service.Delivery}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/pdf-books/deliver [post]
func (h *Handler) Deliver(c *gin.Context) {
	var req deliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}
	d, err := h.books.Deliver(c.Request.Context(), middleware.UserID(c), req.PurchaseID)
	if err != nil {
		h.fail(c, "pdf_book_deliver", err, zap.Uint("purchase_id", req.PurchaseID))
		return
	}
	response.Success(c, d)
}

// Download 凭下载令牌下载，无需登录；成功时 302 到签名直链
// @Summary 令牌下载
// @Tags 电子书
// @Param token path string true "下载令牌"
// @Success 302
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/pdf-books/download/{token} [get]
func (h *Handler) Download(c *gin.Context) {
	d, err := h.books.DownloadByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, "pdf_book_download", err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, d.DownloadURL)
}
