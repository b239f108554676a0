package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/classifieds-api/internal/repository"
	tu "github.com/d60-Lab/classifieds-api/internal/testutil"
)

func TestSearchDefaultsToRelevance(t *testing.T) {
	db := tu.NewDB(t)
	svc := NewSearchService(repository.NewItemRepository(db))
	now := time.Now()

	tu.CreateItem(t, db, "Guitar stand", tu.CreatedAt(now))
	tu.CreateItem(t, db, "guitar", tu.CreatedAt(now.Add(-time.Hour)))
	tu.CreateItem(t, db, "Amplifier", tu.Described("fits any guitar"), tu.CreatedAt(now.Add(time.Minute)))

	page, err := svc.Search(context.Background(), SearchQuery{Q: "  Guitar "})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "guitar", page.Items[0].Title)
	assert.Equal(t, "Guitar stand", page.Items[1].Title)
	assert.Equal(t, "Amplifier", page.Items[2].Title)
	assert.Equal(t, DefaultPerPage, page.PerPage)
}

func TestSearchExplicitSortOverridesRelevance(t *testing.T) {
	db := tu.NewDB(t)
	svc := NewSearchService(repository.NewItemRepository(db))

	tu.CreateItem(t, db, "lamp", tu.Price("30"))
	tu.CreateItem(t, db, "desk lamp", tu.Price("20"))

	page, err := svc.Search(context.Background(), SearchQuery{Q: "lamp", Sort: repository.SortPriceAsc})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "desk lamp", page.Items[0].Title)
}
