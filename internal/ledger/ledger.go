// Package ledger defines the durable record of an in-flight booking-payment
// transaction. The record is written before any control transfer that can lose
// in-memory state (a gateway redirect) and cleared only once an outcome has
// been finalized. Presence of a record means "not yet finalized"; absence means
// nothing is in flight.
package ledger

import (
	"context"
	"encoding/json"

	"github.com/blisslabs/consulting-reservations/internal/domain"
	"github.com/google/uuid"
)

// Store holds at most one pending record per user. Put overwrites any prior
// record; Get is idempotent; Clear is called immediately after a successful
// commit so a repeated return trip cannot re-finalize.
type Store interface {
	Put(ctx context.Context, userID uuid.UUID, rec domain.PendingTransactionRecord) error
	Get(ctx context.Context, userID uuid.UUID) (domain.PendingTransactionRecord, bool, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

func Encode(rec domain.PendingTransactionRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func Decode(data []byte) (domain.PendingTransactionRecord, error) {
	var rec domain.PendingTransactionRecord
	err := json.Unmarshal(data, &rec)
	return rec, err
}
