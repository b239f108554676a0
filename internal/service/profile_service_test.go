package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/classifieds-api/internal/repository"
	tu "github.com/d60-Lab/classifieds-api/internal/testutil"
	"github.com/d60-Lab/classifieds-api/pkg/storage"
)

func newProfile(t *testing.T) (ProfileService, *storage.Local) {
	db := tu.NewDB(t)
	tu.CreateUser(t, db, 1, "mia")
	store, err := storage.NewLocal(t.TempDir(), "http://api.test", "test-signing-key-0123")
	require.NoError(t, err)
	return NewProfileService(repository.NewUserRepository(db), store), store
}

func TestUpdateProfileWithAvatar(t *testing.T) {
	svc, store := newProfile(t)
	ctx := context.Background()

	p, err := svc.Update(ctx, 1, ProfileInput{Name: tu.StrPtr("  Mia Chen "), Location: tu.StrPtr("Taipei")},
		&Avatar{Body: strings.NewReader("png-bytes"), ContentType: "image/png", Ext: ".png"})
	require.NoError(t, err)
	assert.Equal(t, "Mia Chen", p.Name)
	require.NotNil(t, p.Location)
	assert.Equal(t, "Taipei", *p.Location)
	require.NotNil(t, p.AvatarURL)
	assert.Contains(t, *p.AvatarURL, "/storage/avatars/1/")

	first := *p.AvatarPath
	p, err = svc.Update(ctx, 1, ProfileInput{}, &Avatar{Body: strings.NewReader("jpg"), ContentType: "image/jpeg", Ext: ".jpg"})
	require.NoError(t, err)
	assert.NotEqual(t, first, *p.AvatarPath)

	exists, err := store.Exists(ctx, first)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestProfileUnknownUser(t *testing.T) {
	svc, _ := newProfile(t)
	_, err := svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, svc.UpdateFCMToken(context.Background(), 42, "tok"), ErrUserNotFound)
}

func TestFCMToken(t *testing.T) {
	svc, _ := newProfile(t)
	require.NoError(t, svc.UpdateFCMToken(context.Background(), 1, "fcm-1"))
	p, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, p.FCMToken)
	assert.Equal(t, "fcm-1", *p.FCMToken)
}

func TestNotificationSettingsPartialUpdate(t *testing.T) {
	svc, _ := newProfile(t)
	ctx := context.Background()

	st, err := svc.UpdateSettings(ctx, 1, SettingsInput{Promotions: boolPtr(true), ChatMessages: boolPtr(false)})
	require.NoError(t, err)
	assert.True(t, st.Promotions)
	assert.False(t, st.ChatMessages)
	assert.True(t, st.PushEnabled)

	st, err = svc.Settings(ctx, 1)
	require.NoError(t, err)
	assert.False(t, st.ChatMessages)
}

func boolPtr(b bool) *bool { return &b }
