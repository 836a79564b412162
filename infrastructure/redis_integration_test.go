package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"totopool/domain/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *RedisClient {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, fmt.Sprintf("redis://%s/0", endpoint))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPoolCache_Integration(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	cache := NewPoolCache(client, time.Minute)

	loads := 0
	loader := func(ctx context.Context) (decimal.Decimal, error) {
		loads++
		return decimal.RequireFromString("12.50"), nil
	}

	t.Run("read through then hit", func(t *testing.T) {
		pool, err := cache.GetLivePool(ctx, 1, loader)
		require.NoError(t, err)
		assert.Equal(t, "12.5", pool.String())

		pool, err = cache.GetLivePool(ctx, 1, loader)
		require.NoError(t, err)
		assert.Equal(t, "12.5", pool.String())
		assert.Equal(t, 1, loads)
	})

	t.Run("coupon placed overwrites", func(t *testing.T) {
		require.NoError(t, cache.handleCouponPlaced(ctx, events.CouponPlacedEvent{
			RoundID:  1,
			LivePool: decimal.RequireFromString("20.25"),
		}))

		pool, err := cache.GetLivePool(ctx, 1, loader)
		require.NoError(t, err)
		assert.Equal(t, "20.25", pool.String())
	})

	t.Run("round settled invalidates", func(t *testing.T) {
		require.NoError(t, cache.handleRoundSettled(ctx, events.RoundSettledEvent{RoundID: 1}))

		_, err := cache.GetLivePool(ctx, 1, loader)
		require.NoError(t, err)
		assert.Equal(t, 2, loads)
	})

	t.Run("loader error is returned", func(t *testing.T) {
		_, err := cache.GetLivePool(ctx, 99, func(ctx context.Context) (decimal.Decimal, error) {
			return decimal.Zero, errors.New("db down")
		})
		assert.EqualError(t, err, "db down")
	})
}

func TestWorkerLock_Integration(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	lock := NewWorkerLock(client)

	release, ok, err := lock.TryAcquire(ctx, "round-worker", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lock.TryAcquire(ctx, "round-worker", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not get the lease")

	release()
	release()

	release2, ok, err := lock.TryAcquire(ctx, "round-worker", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}
