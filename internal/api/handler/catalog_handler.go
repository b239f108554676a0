package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/classifieds-api/internal/api/middleware"
	"github.com/d60-Lab/classifieds-api/internal/service"
	"github.com/d60-Lab/classifieds-api/pkg/response"
)

type itemListQuery struct {
	MinPrice  *float64 `form:"min_price" binding:"omitempty,gte=0"`
	MaxPrice  *float64 `form:"max_price" binding:"omitempty,gte=0"`
	Condition string   `form:"condition" binding:"omitempty,oneof=new like_new good fair poor"`
	Sort      string   `form:"sort" binding:"omitempty,oneof=latest oldest price_asc price_desc popular name"`
	pageQuery
}

func (q itemListQuery) toService() service.ItemQuery {
	return service.ItemQuery{
		MinPrice:  q.MinPrice,
		MaxPrice:  q.MaxPrice,
		Condition: q.Condition,
		Sort:      q.Sort,
		Page:      q.page(),
	}
}

// Categories 分类树
// @Summary 分类列表（含子分类）
// @Tags 分类
// @Produce json
// @Success 200 {object} response.Response{data=[]model.Category}
// @Router /categories [get]
func (h *Handler) Categories(c *gin.Context) {
	tree, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		h.fail(c, "categories", err)
		return
	}
	response.Success(c, tree)
}

// CategoryStats 每个分类的在售商品数
// @Summary 分类统计
// @Tags 分类
// @Produce json
// @Success 200 {object} response.Response{data=[]repository.CategoryStat}
// @Router /categories/stats [get]
func (h *Handler) CategoryStats(c *gin.Context) {
	stats, err := h.catalog.CategoryStats(c.Request.Context())
	if err != nil {
		h.fail(c, "category_stats", err)
		return
	}
	response.Success(c, stats)
}

// CategoryItems 分类下的商品（含子分类、三级分类）
// @Summary 分类商品列表
// @Tags 分类
// @Produce json
// @Param id path int true "分类ID"
// @Param min_price query number false "最低价"
// @Param max_price query number false "最高价"
// @Param condition query string false "成色" Enums(new, like_new, good, fair, poor)
// @Param sort query string false "排序" Enums(latest, oldest, price_asc, price_desc, popular, name)
// @Param page query int false "页码" default(1)
// @Param per_page query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=[]model.Item}
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /category/{id}/items [get]
func (h *Handler) CategoryItems(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var q itemListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err)
		return
	}
	page, err := h.catalog.CategoryItems(c.Request.Context(), id, q.toService())
	if err != nil {
		h.fail(c, "category_items", err, zap.Uint("category_id", id))
		return
	}
	response.Paginated(c, page.Items, response.NewPagination(page.Page, page.PerPage, page.Total))
}

// SubCategoryItems 子分类下的商品（含三级分类）
// @Summary 子分类商品列表
// @Tags 分类
// @Produce json
// @Param id path int true "子分类ID"
// @Param min_price query number false "最低价"
// @Param max_price query number false "最高价"
// @Param condition query string false "成色"
// @Param sort query string false "排序"
// @Param page query int false "页码" default(1)
// @Param per_page query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=[]model.Item}
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /subcategory/{id}/items [get]
func (h *Handler) SubCategoryItems(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var q itemListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err)
		return
	}
	page, err := h.catalog.SubCategoryItems(c.Request.Context(), id, q.toService())
	if err != nil {
		h.fail(c, "subcategory_items", err, zap.Uint("sub_category_id", id))
		return
	}
	response.Paginated(c, page.Items, response.NewPagination(page.Page, page.PerPage, page.Total))
}

// Home 首页
// @Summary 首页（推广、最新、热门）
// @Tags 分类
// @Produce json
// @Success 200 {object} response.Response{data=service.HomeFeed}
// @Router /home [get]
func (h *Handler) Home(c *gin.Context) {
	feed, err := h.catalog.Home(c.Request.Context())
	if err != nil {
		h.fail(c, "home", err)
		return
	}
	response.Success(c, feed)
}

// ItemDetail 商品详情
// @Summary 商品详情（浏览数 +1）
// @Tags 分类
// @Produce json
// @Param id path int true "商品ID"
// @Success 200 {object} response.Response{data=model.Item}
// @Failure 404 {object} response.Response
// @Router /items/{id} [get]
func (h *Handler) ItemDetail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.catalog.ItemDetail(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "item_detail", err, zap.Uint("item_id", id))
		return
	}
	if uid := middleware.UserID(c); uid != 0 && h.recorder != nil {
		h.recorder.RecordItemView(uid, item)
	}
	response.Success(c, item)
}
