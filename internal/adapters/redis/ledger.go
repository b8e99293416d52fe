package redis

import (
	"context"
	"time"

	"github.com/blisslabs/consulting-reservations/internal/domain"
	"github.com/blisslabs/consulting-reservations/internal/ledger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LedgerStore keeps the pending transaction record in Redis so it survives the
// round trip to the gateway's domain. One key per user, last write wins.
type LedgerStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLedgerStore(client *redis.Client, ttl time.Duration) *LedgerStore {
	return &LedgerStore{client: client, ttl: ttl}
}

func (s *LedgerStore) key(userID uuid.UUID) string {
	return "txn:" + userID.String()
}

func (s *LedgerStore) Put(ctx context.Context, userID uuid.UUID, rec domain.PendingTransactionRecord) error {
	data, err := ledger.Encode(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(userID), data, s.ttl).Err()
}

func (s *LedgerStore) Get(ctx context.Context, userID uuid.UUID) (domain.PendingTransactionRecord, bool, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err == redis.Nil {
		return domain.PendingTransactionRecord{}, false, nil
	}
	if err != nil {
		return domain.PendingTransactionRecord{}, false, err
	}
	rec, err := ledger.Decode(data)
	if err != nil {
		return domain.PendingTransactionRecord{}, false, err
	}
	return rec, true, nil
}

func (s *LedgerStore) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}
