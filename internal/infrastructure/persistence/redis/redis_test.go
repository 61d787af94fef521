package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkflow-ai-api/internal/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewClientFromRedis(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestKVStore_ReadWrite(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	store := NewKVStore(client, "inkflow")

	_, ok, err := store.Read(ctx, "inkflow_history")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Write(ctx, "inkflow_history", `[]`))
	v, ok, err := store.Read(ctx, "inkflow_history")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, v)

	raw, err := mr.Get("inkflow:inkflow_history")
	require.NoError(t, err)
	assert.Equal(t, `[]`, raw)
	assert.NoError(t, store.HealthCheck(ctx))
}

func TestKVStore_ReadErrorWhenServerDown(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewKVStore(client, "")
	mr.Close()

	_, _, err := store.Read(context.Background(), "k")
	assert.Error(t, err)
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client)
	key := BuildRateLimitKey("127.0.0.1", "/v1/session/generate")

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client)
	now := time.UnixMilli(1_700_000_000_000)
	limiter.now = func() time.Time { return now }
	key := BuildRateLimitKey("127.0.0.1", "/v1/session/generate")

	ok, err := limiter.Allow(ctx, key, 1, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Allow(ctx, key, 1, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(1500 * time.Millisecond)
	ok, err = limiter.Allow(ctx, key, 1, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewClient_FromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.RedisConfig{Host: mr.Host(), Port: mustPort(t, mr.Port()), DialTimeout: time.Second}

	client, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.Equal(t, mr.Addr(), client.Addr())
	assert.NoError(t, client.HealthCheck(context.Background()))
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.RedisConfig{Host: mr.Host(), Port: mustPort(t, mr.Port()), DialTimeout: 200 * time.Millisecond}
	mr.Close()

	_, err := NewClient(context.Background(), cfg)
	assert.Error(t, err)
}

func mustPort(t *testing.T, port string) int {
	t.Helper()
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return p
}
