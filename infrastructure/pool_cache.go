package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"totopool/domain/events"
	"totopool/infrastructure/observability"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// PoolCache is a read-through Redis cache of round live pools. Values are
// written after a coupon commits and removed once the round settles.
type PoolCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPoolCache creates a pool cache on the given client
func NewPoolCache(client *RedisClient, ttl time.Duration) *PoolCache {
	return &PoolCache{
		rdb: client.rdb,
		ttl: ttl,
	}
}

func livePoolKey(roundID int64) string {
	return fmt.Sprintf("round:%d:live_pool", roundID)
}

// GetLivePool returns the cached pool of a round, calling load on a miss and
// caching its result
func (c *PoolCache) GetLivePool(ctx context.Context, roundID int64, load func(ctx context.Context) (decimal.Decimal, error)) (decimal.Decimal, error) {
	cached, err := c.rdb.Get(ctx, livePoolKey(roundID)).Result()
	switch {
	case err == nil:
		if pool, parseErr := decimal.NewFromString(cached); parseErr == nil {
			observability.GetMetrics().RecordPoolCacheLookup(observability.CacheHit)
			return pool, nil
		}
		log.WithField("roundID", roundID).Warn("Discarding unparseable cached live pool")
	case !errors.Is(err, redis.Nil):
		// a broken cache never blocks reads
		log.WithError(err).WithField("roundID", roundID).Warn("Live pool cache read failed")
	}

	observability.GetMetrics().RecordPoolCacheLookup(observability.CacheMiss)
	pool, err := load(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.Set(ctx, roundID, pool); err != nil {
		log.WithError(err).WithField("roundID", roundID).Warn("Failed to cache live pool")
	}
	return pool, nil
}

// Set stores the live pool of a round
func (c *PoolCache) Set(ctx context.Context, roundID int64, pool decimal.Decimal) error {
	return c.rdb.Set(ctx, livePoolKey(roundID), pool.String(), c.ttl).Err()
}

// Invalidate removes the cached pool of a round
func (c *PoolCache) Invalidate(ctx context.Context, roundID int64) error {
	return c.rdb.Del(ctx, livePoolKey(roundID)).Err()
}

// RegisterHandlers keeps the cache current from committed events
func (c *PoolCache) RegisterHandlers(factory *UnitOfWorkFactory) {
	factory.RegisterLocalHandler(events.EventTypeCouponPlaced, c.handleCouponPlaced)
	factory.RegisterLocalHandler(events.EventTypeRoundSettled, c.handleRoundSettled)
}

func (c *PoolCache) handleCouponPlaced(ctx context.Context, event events.Event) error {
	placed, ok := event.(events.CouponPlacedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	return c.Set(ctx, placed.RoundID, placed.LivePool)
}

func (c *PoolCache) handleRoundSettled(ctx context.Context, event events.Event) error {
	settled, ok := event.(events.RoundSettledEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	return c.Invalidate(ctx, settled.RoundID)
}
