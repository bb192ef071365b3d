package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Rayzi0417/om-card/internal/ratelimit"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate redis container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisStore_Limiter(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	store := ratelimit.NewRedisStore(client, "omcard:test:")
	l := ratelimit.New(store)
	cfg := ratelimit.Config{MaxRequests: 2, Window: 2 * time.Second}

	for i := range 2 {
		res, err := l.Check(ctx, "draw:127.0.0.1", cfg)
		require.NoError(t, err)
		assert.True(t, res.Success, "request %d", i+1)
	}

	res, err := l.Check(ctx, "draw:127.0.0.1", cfg)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Positive(t, res.RetryAfter)

	ttl, err := client.TTL(ctx, "omcard:test:draw:127.0.0.1").Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)

	assert.Eventually(t, func() bool {
		res, err := l.Check(ctx, "draw:127.0.0.1", cfg)
		return err == nil && res.Success
	}, 5*time.Second, 200*time.Millisecond)
}

func TestRedisStore_GetMissingAndDelete(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	store := ratelimit.NewRedisStore(client, "omcard:test:")

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := ratelimit.Entry{Count: 3, ResetTime: time.Now().Add(time.Minute).UTC().Truncate(time.Second)}
	require.NoError(t, store.Set(ctx, "k", want, time.Minute))
	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Count, got.Count)
	assert.True(t, want.ResetTime.Equal(got.ResetTime))

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
