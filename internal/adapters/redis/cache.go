package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// Checkout locks are short-lived; the TTL only bounds leakage if the
// process dies before releasing.
const checkoutLockTTL = 2 * time.Minute

// AcquireCheckoutLock serializes checkouts per user via SetNX.
func (c *Cache) AcquireCheckoutLock(ctx context.Context, userID uuid.UUID) (bool, error) {
	res := c.client.SetNX(ctx, "checkout:"+userID.String(), "1", checkoutLockTTL)
	return res.Val(), res.Err()
}

func (c *Cache) ReleaseCheckoutLock(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, "checkout:"+userID.String()).Err()
}
