package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/classifieds-api/config"
	"github.com/d60-Lab/classifieds-api/internal/repository"
	tu "github.com/d60-Lab/classifieds-api/internal/testutil"
	"github.com/d60-Lab/classifieds-api/pkg/cache"
)

func newCatalog(t *testing.T) (CatalogService, *gorm.DB, *tu.Catalog) {
	db := tu.NewDB(t)
	client, _ := tu.NewRedis(t)
	svc := NewCatalogService(
		repository.NewItemRepository(db),
		repository.NewCategoryRepository(db),
		cache.New(client, "test"),
		config.CacheConfig{HomeTTL: time.Minute, CategoryStatsTTL: time.Minute, CategoriesTTL: time.Minute},
	)
	return svc, db, tu.SeedCatalog(t, db)
}

func TestCategoryItemsUnknownCategory(t *testing.T) {
	svc, _, _ := newCatalog(t)
	_, err := svc.CategoryItems(context.Background(), 999, ItemQuery{})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	_, err = svc.SubCategoryItems(context.Background(), 999, ItemQuery{})
	assert.ErrorIs(t, err, ErrSubCategoryNotFound)
}

func TestCategoryItemsPaginates(t *testing.T) {
	svc, db, cat := newCatalog(t)
	for i := 0; i < 5; i++ {
		tu.CreateItem(t, db, "item", tu.InChild(cat.Smartphones.ID))
	}

	page, err := svc.CategoryItems(context.Background(), cat.Electronics.ID, ItemQuery{Page: Page{Page: 2, PerPage: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Page)

	page, err = svc.SubCategoryItems(context.Background(), cat.Phones.ID, ItemQuery{Page: Page{PerPage: 1000}})
	require.NoError(t, err)
	assert.Equal(t, MaxPerPage, page.PerPage)
	assert.Len(t, page.Items, 5)
}

func TestHomeFeedIsCached(t *testing.T) {
	svc, db, _ := newCatalog(t)
	future := time.Now().Add(time.Hour)
	tu.CreateItem(t, db, "boosted", tu.Promoted(&future))
	tu.CreateItem(t, db, "plain", tu.Popularity(10, 100))

	feed, err := svc.Home(context.Background())
	require.NoError(t, err)
	require.Len(t, feed.Promoted, 1)
	assert.Equal(t, "boosted", feed.Promoted[0].Title)
	assert.Len(t, feed.Latest, 2)
	assert.Equal(t, "boosted", feed.Popular[0].Title)

	tu.CreateItem(t, db, "late arrival")
	feed, err = svc.Home(context.Background())
	require.NoError(t, err)
	assert.Len(t, feed.Latest, 2)
}

func TestItemDetailCountsViews(t *testing.T) {
	svc, db, _ := newCatalog(t)
	it := tu.CreateItem(t, db, "bike")

	got, err := svc.ItemDetail(context.Background(), it.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.ViewsCount)

	got, err = svc.ItemDetail(context.Background(), it.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.ViewsCount)

	_, err = svc.ItemDetail(context.Background(), it.ID+100)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestCategoriesTreeAndStats(t *testing.T) {
	svc, db, cat := newCatalog(t)
	tu.CreateItem(t, db, "chair", tu.InSubCategory(cat.Chairs.ID))

	tree, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 2)
	require.Len(t, tree[0].SubCategories, 1)
	assert.Len(t, tree[0].SubCategories[0].ChildSubCategories, 1)

	stats, err := svc.CategoryStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.EqualValues(t, 0, stats[0].ItemsCount)
	assert.EqualValues(t, 1, stats[1].ItemsCount)
}
