package pg

import (
	"context"
	"time"

	"github.com/blisslabs/consulting-reservations/internal/domain"
	"github.com/blisslabs/consulting-reservations/internal/observability"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	SerializationFailureCode = "40001"
	UniqueViolationCode      = "23505"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case SerializationFailureCode:
				return domain.ErrSerializationFailure
			case UniqueViolationCode:
				return domain.ErrConflict
			}
		}
		return err
	}

	return tx.Commit(ctx)
}

// CreateIntent writes the hold row. The partial unique index on
// (designer_id, date_time) WHERE status = 'ACTIVE' makes the backend the
// authority on double booking; zero rows affected means the slot is taken.
func (r *Repository) CreateIntent(ctx context.Context, tx pgx.Tx, intent domain.ReservationIntent) error {
	result, err := tx.Exec(ctx, `
		INSERT INTO intents (id, designer_id, user_id, date_time, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, 'ACTIVE')
		ON CONFLICT (designer_id, date_time) WHERE status = 'ACTIVE' DO NOTHING
	`, intent.ID, intent.DesignerID, intent.UserID, intent.DateTime, intent.ExpiresAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *Repository) GetIntent(ctx context.Context, intentID uuid.UUID) (*domain.ReservationIntent, error) {
	var intent domain.ReservationIntent
	err := r.pool.QueryRow(ctx, `
		SELECT id, designer_id, user_id, date_time, expires_at
		FROM intents WHERE id = $1 AND status = 'ACTIVE'
	`, intentID).Scan(&intent.ID, &intent.DesignerID, &intent.UserID, &intent.DateTime, &intent.ExpiresAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// CreateReservation commits the reservation, consumes the intent, and inserts
// the outbox row in one transaction.
func (r *Repository) CreateReservation(ctx context.Context, tx pgx.Tx, res domain.Reservation) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO reservations (id, intent_id, designer_id, user_id, date_time, fee, mode, payment_id, transaction_token, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, res.ID, res.IntentID, res.DesignerID, res.UserID, res.DateTime, res.Fee, res.Mode, res.PaymentID, res.TransactionToken, res.Status)
	if err != nil {
		return err
	}

	result, err := tx.Exec(ctx, `
		UPDATE intents SET status = 'CONSUMED' WHERE id = $1 AND status = 'ACTIVE'
	`, res.IntentID)
	if err != nil {
		return err
	}
	// Zero rows means the intent was already consumed or expired; committing
	// again would double-book the slot.
	if result.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *Repository) UpdateReservationStatus(ctx context.Context, reservationID uuid.UUID, status domain.ReservationStatus) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE reservations SET status = $2 WHERE id = $1
	`, reservationID, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) ListReservations(ctx context.Context, userID uuid.UUID) ([]domain.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, intent_id, designer_id, user_id, date_time, fee, mode, payment_id, transaction_token, status
		FROM reservations WHERE user_id = $1 ORDER BY date_time DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.IntentID, &res.DesignerID, &res.UserID, &res.DateTime,
			&res.Fee, &res.Mode, &res.PaymentID, &res.TransactionToken, &res.Status); err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func (r *Repository) GetExpiredIntents(ctx context.Context, now time.Time) ([]domain.ReservationIntent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, designer_id, user_id, date_time, expires_at
		FROM intents WHERE status = 'ACTIVE' AND expires_at <= $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []domain.ReservationIntent
	for rows.Next() {
		var intent domain.ReservationIntent
		if err := rows.Scan(&intent.ID, &intent.DesignerID, &intent.UserID, &intent.DateTime, &intent.ExpiresAt); err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	return intents, rows.Err()
}

func (r *Repository) ReleaseIntent(ctx context.Context, intentID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE intents SET status = 'EXPIRED' WHERE id = $1 AND status = 'ACTIVE'
	`, intentID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
