package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/classifieds-api/pkg/realtime"
)

func TestRealtimeUnconfigured(t *testing.T) {
	svc := NewRealtimeService(nil, "http://api.test")
	_, err := svc.Token(1)
	assert.ErrorIs(t, err, ErrRealtimeUnavailable)
	_, err = svc.Config(1)
	assert.ErrorIs(t, err, ErrRealtimeUnavailable)
}

func TestRealtimeConfigAndToken(t *testing.T) {
	issuer, err := realtime.NewIssuer("app.key:secret", time.Hour)
	require.NoError(t, err)
	svc := NewRealtimeService(issuer, "http://api.test")

	cfg, err := svc.Config(7)
	require.NoError(t, err)
	assert.Equal(t, "7", cfg.ClientID)
	assert.Equal(t, "http://api.test/auth/ably-token", cfg.TokenEndpoint)
	assert.EqualValues(t, 3600, cfg.TokenTTLSeconds)
	assert.Equal(t, "presence:{user_id}", cfg.Channels.Presence)

	tok, err := svc.Token(7)
	require.NoError(t, err)
	assert.Equal(t, "7", tok.ClientID)
	assert.NotEmpty(t, tok.Token)
}
