package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/classifieds-api/internal/model"
	tu "github.com/d60-Lab/classifieds-api/internal/testutil"
)

func seedHistory(t *testing.T, repo HistoryRepository, userID uint, typ string) *model.UserHistory {
	h := &model.UserHistory{UserID: userID, Type: typ, Action: "viewed"}
	require.NoError(t, repo.Create(context.Background(), h))
	return h
}

func TestHistoryIsScopedToOwner(t *testing.T) {
	repo := NewHistoryRepository(tu.NewDB(t))
	ctx := context.Background()

	mine := seedHistory(t, repo, 1, "item_view")
	theirs := seedHistory(t, repo, 2, "item_view")

	_, err := repo.FindForUser(ctx, 1, theirs.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	list, total, err := repo.ListForUser(ctx, 1, HistoryFilter{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, mine.ID, list[0].ID)
}

func TestHistoryDeletesOnlyOwnRows(t *testing.T) {
	repo := NewHistoryRepository(tu.NewDB(t))
	ctx := context.Background()

	a := seedHistory(t, repo, 1, "search")
	b := seedHistory(t, repo, 1, "item_view")
	other := seedHistory(t, repo, 2, "search")

	n, err := repo.DeleteForUser(ctx, 1, other.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.DeleteManyForUser(ctx, 1, []uint{a.ID, other.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.DeleteAllForUser(ctx, 1, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = repo.FindForUser(ctx, 1, b.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.FindForUser(ctx, 2, other.ID)
	assert.NoError(t, err)
}

func TestHistoryFiltersAndCounts(t *testing.T) {
	repo := NewHistoryRepository(tu.NewDB(t))
	ctx := context.Background()

	seedHistory(t, repo, 1, "search")
	seedHistory(t, repo, 1, "search")
	seedHistory(t, repo, 1, "item_view")

	list, total, err := repo.ListForUser(ctx, 1, HistoryFilter{Type: "search", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)

	counts, err := repo.CountByType(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []TypeCount{{Type: "item_view", Count: 1}, {Type: "search", Count: 2}}, counts)

	n, err := repo.DeleteAllForUser(ctx, 1, "search")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
