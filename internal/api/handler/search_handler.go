package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/classifieds-api/internal/service"
	"github.com/d60-Lab/classifieds-api/pkg/response"
)

type searchQuery struct {
	Q                  string   `form:"q" binding:"required,min=1,max=100"`
	CategoryID         *uint    `form:"category_id" binding:"omitempty,gt=0"`
	SubCategoryID      *uint    `form:"subcategory_id" binding:"omitempty,gt=0"`
	ChildSubCategoryID *uint    `form:"child_subcategory_id" binding:"omitempty,gt=0"`
	MinPrice           *float64 `form:"min_price" binding:"omitempty,gte=0"`
	MaxPrice           *float64 `form:"max_price" binding:"omitempty,gte=0"`
	Condition          string   `form:"condition" binding:"omitempty,oneof=new like_new good fair poor"`
	Sort               string   `form:"sort" binding:"omitempty,oneof=relevance latest oldest price_asc price_desc popular name"`
	pageQuery
}

// Search 搜索商品
// @Summary 搜索商品（默认按相关度）
// @Tags 搜索
// @Produce json
// @Param q query string true "关键词"
// @Param category_id query int false "分类ID"
// @Param subcategory_id query int false "子分类ID"
// @Param child_subcategory_id query int false "三级分类ID"
// @Param min_price query number false "最低价"
// @Param max_price query number false "最高价"
// @Param condition query string false "成色"
// @Param sort query string false "排序" Enums(relevance, latest, oldest, price_asc, price_desc, popular, name)
// @Param page query int false "页码" default(1)
// @Param per_page query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=[]model.Item}
// @Failure 422 {object} response.Response
// @Router /search [get]
func (h *Handler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err)
		return
	}
	if strings.TrimSpace(q.Q) == "" {
		response.ValidationFailed(c, map[string][]string{"q": {"The q field is required."}})
		return
	}
	page, err := h.search.Search(c.Request.Context(), service.SearchQuery{
		Q:                  q.Q,
		CategoryID:         q.CategoryID,
		SubCategoryID:      q.SubCategoryID,
		ChildSubCategoryID: q.ChildSubCategoryID,
		MinPrice:           q.MinPrice,
		MaxPrice:           q.MaxPrice,
		Condition:          q.Condition,
		Sort:               q.Sort,
		Page:               q.page(),
	})
	if err != nil {
		h.fail(c, "search", err, zap.String("q", q.Q))
		return
	}
	response.Paginated(c, page.Items, response.NewPagination(page.Page, page.PerPage, page.Total))
}
