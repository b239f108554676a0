package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/classifieds-api/internal/api/middleware"
	"github.com/d60-Lab/classifieds-api/internal/service"
	"github.com/d60-Lab/classifieds-api/pkg/response"
)

type historyListQuery struct {
	Type     string `form:"type" binding:"omitempty,max=50"`
	Action   string `form:"action" binding:"omitempty,max=50"`
	Category string `form:"category" binding:"omitempty,max=100"`
	pageQuery
}

type createHistoryRequest struct {
	Type        string                 `json:"type" binding:"required,max=50"`
	Action      string                 `json:"action" binding:"required,max=50"`
	Title       *string                `json:"title" binding:"omitempty,max=255"`
	Description *string                `json:"description" binding:"omitempty,max=5000"`
	Category    *string                `json:"category" binding:"omitempty,max=100"`
	Details     map[string]interface{} `json:"details"`
	RelatedType *string                `json:"related_type" binding:"omitempty,max=100"`
	RelatedID   *uint                  `json:"related_id" binding:"omitempty,gt=0"`
}

type bulkDeleteRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1,max=500,dive,gt=0"`
}

type deletedCount struct {
	DeletedCount int64 `json:"deleted_count"`
}

// ListHistory 当前用户的历史记录
// @Summary 历史记录列表
// @Tags 历史记录
// @Produce json
// @Security BearerAuth
// @Param type query string false "类型"
// @Param action query string false "动作"
// @Param category query string false "分类"
// @Param page query int false "页码" default(1)
// @Param per_page query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=[]model.UserHistory}
// @Failure 401 {object} response.Response
// @Router /user/history [get]
func (h *Handler) ListHistory(c *gin.Context) {
	var q historyListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err)
		return
	}
	page, err := h.history.List(c.Request.Context(), middleware.UserID(c), service.HistoryQuery{
		Type:     q.Type,
		Action:   q.Action,
		Category: q.Category,
		Page:     q.page(),
	})
	if err != nil {
		h.fail(c, "history_list", err)
		return
	}
	response.Paginated(c, page.Items, response.NewPagination(page.Page, page.PerPage, page.Total))
}

// HistoryStats 按类型统计
// @Summary 历史记录统计
// @Tags 历史记录
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=service.HistoryStats}
// @Router /user/history/stats [get]
func (h *Handler) HistoryStats(c *gin.Context) {
	st, err := h.history.Stats(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, "history_stats", err)
		return
	}
	response.Success(c, st)
}

// GetHistory 单条历史记录
// @Summary 历史记录详情
// @Tags 历史记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "记录ID"
// @Success 200 {object} response.Response{data=model.UserHistory}
// @Failure 404 {object} response.Response
// @Router /user/history/{id} [get]
func (h *Handler) GetHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.history.Get(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		h.fail(c, "history_get", err, zap.Uint("history_id", id))
		return
	}
	response.Success(c, item)
}

// CreateHistory 记录一条历史
// @Summary 新建历史记录
// @Tags 历史记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createHistoryRequest true "记录内容"
// @Success 201 {object} response.Response{data=model.UserHistory}
// @Failure 422 {object} response.Response
// @Router /user/history [post]
func (h *Handler) CreateHistory(c *gin.Context) {
	var req createHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}
	item, err := h.history.Record(c.Request.Context(), middleware.UserID(c), service.HistoryInput{
		Type:        req.Type,
		Action:      req.Action,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Details:     req.Details,
		RelatedType: req.RelatedType,
		RelatedID:   req.RelatedID,
	})
	if err != nil {
		h.fail(c, "history_create", err)
		return
	}
	response.Created(c, item)
}

// DeleteHistory 删除一条
// @Summary 删除历史记录
// @Tags 历史记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "记录ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /user/history/{id} [delete]
func (h *Handler) DeleteHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.history.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		h.fail(c, "history_delete", err, zap.Uint("history_id", id))
		return
	}
	response.SuccessWithMessage(c, "History item deleted", nil)
}

// BulkDeleteHistory 批量删除（只影响当前用户的记录）
// @Summary 批量删除历史记录
// @Tags 历史记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body bulkDeleteRequest true "记录ID列表"
// @Success 200 {object} response.Response{data=deletedCount}
// @Failure 422 {object} response.Response
// @Router /user/history/bulk-delete [post]
func (h *Handler) BulkDeleteHistory(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}
	n, err := h.history.BulkDelete(c.Request.Context(), middleware.UserID(c), req.IDs)
	if err != nil {
		h.fail(c, "history_bulk_delete", err, zap.Int("ids", len(req.IDs)))
		return
	}
	response.Success(c, deletedCount{DeletedCount: n})
}

// ClearHistory 清空历史，可按类型
// @Summary 清空历史记录
// @Tags 历史记录
// @Produce json
// @Security BearerAuth
// @Param type query string false "类型"
// @Success 200 {object} response.Response{data=deletedCount}
// @Router /user/history [delete]
func (h *Handler) ClearHistory(c *gin.Context) {
	n, err := h.history.Clear(c.Request.Context(), middleware.UserID(c), c.Query("type"))
	if err != nil {
		h.fail(c, "history_clear", err)
		return
	}
	response.Success(c, deletedCount{DeletedCount: n})
}
