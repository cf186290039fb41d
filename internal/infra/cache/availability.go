package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AvailabilityCache stores the active booking count of each show in Redis.
// Counts live under "availability:booked:<show>:<gen>" with a TTL. Writers
// INCR "availability:gen:<show>", which moves readers to a fresh key; a
// reader that counted before the bump can only fill the old one.
type AvailabilityCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewAvailabilityCache(client redis.Cmdable, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func (c *AvailabilityCache) GetBooked(ctx context.Context, showID uuid.UUID) (int, int64, bool, error) {
	gen, err := c.client.Get(ctx, genKey(showID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, false, fmt.Errorf("get availability generation: %w", err)
	}

	n, err := c.client.Get(ctx, bookedKey(showID, gen)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, gen, false, nil
		}
		return 0, 0, false, fmt.Errorf("get booked count: %w", err)
	}
	return n, gen, true, nil
}

func (c *AvailabilityCache) SetBooked(ctx context.Context, showID uuid.UUID, gen int64, booked int) error {
	if err := c.client.Set(ctx, bookedKey(showID, gen), booked, c.ttl).Err(); err != nil {
		return fmt.Errorf("set booked count: %w", err)
	}
	return nil
}

// Invalidate must run after the write is committed.
func (c *AvailabilityCache) Invalidate(ctx context.Context, showID uuid.UUID) error {
	if err := c.client.Incr(ctx, genKey(showID)).Err(); err != nil {
		return fmt.Errorf("bump availability generation: %w", err)
	}
	return nil
}

func genKey(showID uuid.UUID) string {
	return fmt.Sprintf("availability:gen:%s", showID)
}

func bookedKey(showID uuid.UUID, gen int64) string {
	return fmt.Sprintf("availability:booked:%s:%d", showID, gen)
}

// Noop is used when Redis is not configured. Every read is a miss.
type Noop struct{}

func (Noop) GetBooked(context.Context, uuid.UUID) (int, int64, bool, error) { return 0, 0, false, nil }
func (Noop) SetBooked(context.Context, uuid.UUID, int64, int) error         { return nil }
func (Noop) Invalidate(context.Context, uuid.UUID) error                    { return nil }
