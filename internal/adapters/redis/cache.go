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

// SetSlotLock takes a short-lived lock on a (designer, slot) pair before the
// durable intent row is written, so two clients racing for the same slot fail
// fast without touching the database.
func (c *Cache) SetSlotLock(ctx context.Context, designerID, slot, userID string, ttl time.Duration) (bool, error) {
	key := "hold:" + designerID + ":" + slot
	res := c.client.SetNX(ctx, key, userID, ttl)
	return res.Val(), res.Err()
}

func (c *Cache) DeleteSlotLock(ctx context.Context, designerID, slot string) error {
	return c.client.Del(ctx, "hold:"+designerID+":"+slot).Err()
}

func listKey(userID uuid.UUID) string {
	return "resv:list:" + userID.String()
}

// GetReservationList returns the cached reservation-list payload for a user,
// or nil when the cache is cold.
func (c *Cache) GetReservationList(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	data, err := c.client.Get(ctx, listKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

func (c *Cache) SetReservationList(ctx context.Context, userID uuid.UUID, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, listKey(userID), data, ttl).Err()
}

// InvalidateReservations drops the cached list after a commit. Best effort:
// callers log and swallow failures.
func (c *Cache) InvalidateReservations(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, listKey(userID)).Err()
}
