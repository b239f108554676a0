package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "test"), mr
}

func TestRememberCachesLoaderResult(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) ([]snapshot, error) {
		calls++
		return []snapshot{{ID: 1, Title: "bike"}}, nil
	}

	got, err := Remember(ctx, c, "home:feed", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "bike", got[0].Title)

	got, err = Remember(ctx, c, "home:feed", time.Minute, load)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("test:home:feed"))
}

func TestRememberExpiresAfterTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (int, error) { calls++; return calls, nil }

	_, err := Remember(ctx, c, "stats", 5*time.Minute, load)
	require.NoError(t, err)
	mr.FastForward(6 * time.Minute)

	v, err := Remember(ctx, c, "stats", 5*time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("boom")

	_, err := Remember(context.Background(), c, "legal:terms", time.Hour, func(context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("test:legal:terms"))
}

func TestRememberFallsBackWhenRedisDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	v, err := Remember(context.Background(), c, "home", time.Minute, func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestNilCachePassesThrough(t *testing.T) {
	var c *Cache
	v, err := Remember(context.Background(), c, "k", time.Minute, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.NoError(t, c.Forget(context.Background(), "k"))
}

func TestForget(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("test:a", "1"))

	require.NoError(t, c.Forget(context.Background(), "a"))
	assert.False(t, mr.Exists("test:a"))
}
