package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tu "github.com/d60-Lab/classifieds-api/internal/testutil"
)

func TestSettingsLazilyCreatedWithDefaults(t *testing.T) {
	db := tu.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	tu.CreateUser(t, db, 5, "ana")

	s, err := repo.SettingsFor(ctx, 5)
	require.NoError(t, err)
	assert.True(t, s.PushEnabled)
	assert.False(t, s.Promotions)

	require.NoError(t, repo.UpdateSettings(ctx, 5, map[string]interface{}{"push_enabled": false, "promotions": true}))
	s, err = repo.SettingsFor(ctx, 5)
	require.NoError(t, err)
	assert.False(t, s.PushEnabled)
	assert.True(t, s.Promotions)
	assert.True(t, s.EmailEnabled)
}

func TestUpdateProfileAndFCMToken(t *testing.T) {
	db := tu.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	tu.CreateUser(t, db, 9, "bo")

	require.NoError(t, repo.UpdateProfile(ctx, 9, map[string]interface{}{"name": "Bo Li", "bio": "collector"}))
	require.NoError(t, repo.UpdateFCMToken(ctx, 9, "fcm-abc", time.Now()))

	u, err := repo.FindActive(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "Bo Li", u.Name)
	require.NotNil(t, u.Bio)
	assert.Equal(t, "collector", *u.Bio)
	require.NotNil(t, u.FCMToken)
	assert.Equal(t, "fcm-abc", *u.FCMToken)
}
