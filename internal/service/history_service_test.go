package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/classifieds-api/internal/repository"
	tu "github.com/d60-Lab/classifieds-api/internal/testutil"
)

func newHistory(t *testing.T) HistoryService {
	return NewHistoryService(repository.NewHistoryRepository(tu.NewDB(t)))
}

func TestRecordStoresDetails(t *testing.T) {
	svc := newHistory(t)
	ctx := context.Background()

	h, err := svc.Record(ctx, 1, HistoryInput{
		Type:      "item_view",
		Action:    "viewed",
		Title:     tu.StrPtr("Red bike"),
		Details:   map[string]interface{}{"item_id": 42},
		RelatedID: tu.UintPtr(42),
	})
	require.NoError(t, err)
	require.NotZero(t, h.ID)

	got, err := svc.Get(ctx, 1, h.ID)
	require.NoError(t, err)
	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(got.Details, &details))
	assert.EqualValues(t, 42, details["item_id"])
}

func TestHistoryInvisibleToOtherUsers(t *testing.T) {
	svc := newHistory(t)
	ctx := context.Background()

	h, err := svc.Record(ctx, 1, HistoryInput{Type: "search", Action: "searched"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, h.ID)
	assert.ErrorIs(t, err, ErrHistoryNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 2, h.ID), ErrHistoryNotFound)

	page, err := svc.List(ctx, 2, HistoryQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	n, err := svc.BulkDelete(ctx, 2, []uint{h.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, svc.Delete(ctx, 1, h.ID))
}

func TestHistoryStatsAndClear(t *testing.T) {
	svc := newHistory(t)
	ctx := context.Background()
	for _, typ := range []string{"search", "search", "item_view"} {
		_, err := svc.Record(ctx, 3, HistoryInput{Type: typ, Action: "x"})
		require.NoError(t, err)
	}

	st, err := svc.Stats(ctx, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.Total)
	assert.Len(t, st.ByType, 2)

	n, err := svc.Clear(ctx, 3, "item_view")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = svc.Clear(ctx, 3, "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
