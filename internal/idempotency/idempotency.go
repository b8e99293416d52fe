package idempotency

import (
	"context"

	redisadapter "github.com/blisslabs/consulting-reservations/internal/adapters/redis"
)

// Idempotency replays stored responses for repeated Idempotency-Key values so
// retried POSTs cannot double-book or double-charge.
type Idempotency struct {
	redis *redisadapter.Idempotency
}

func NewIdempotency(redis *redisadapter.Idempotency) *Idempotency {
	return &Idempotency{redis: redis}
}

type Response struct {
	Status int
	Result []byte
}

func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	stored, err := i.redis.Get(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, Result: stored.Result}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	return i.redis.Set(ctx, key, redisadapter.IdempResponse{Status: resp.Status, Result: resp.Result})
}
