package pg_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blisslabs/consulting-reservations/internal/adapters/pg"
	"github.com/blisslabs/consulting-reservations/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPool(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	dsn, err := crdbContainer.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, dsn+"/crs?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		CREATE DATABASE IF NOT EXISTS crs;
		CREATE TABLE IF NOT EXISTS crs.intents (
			id UUID PRIMARY KEY,
			designer_id UUID,
			user_id UUID,
			date_time TIMESTAMPTZ,
			expires_at TIMESTAMPTZ,
			status TEXT CHECK (status IN ('ACTIVE', 'EXPIRED', 'CONSUMED')),
			UNIQUE (designer_id, date_time) WHERE status = 'ACTIVE'
		);
		CREATE TABLE IF NOT EXISTS crs.reservations (
			id UUID PRIMARY KEY,
			intent_id UUID UNIQUE,
			designer_id UUID,
			user_id UUID,
			date_time TIMESTAMPTZ,
			fee BIGINT,
			mode TEXT,
			payment_id TEXT,
			transaction_token TEXT,
			status TEXT CHECK (status IN ('AWAITING_PAYMENT', 'CONFIRMED', 'CANCELLED'))
		);
		CREATE TABLE IF NOT EXISTS crs.outbox (
			id UUID PRIMARY KEY,
			aggregate_type TEXT,
			aggregate_id UUID,
			event_type TEXT,
			payload_json BYTES,
			created_at TIMESTAMPTZ DEFAULT now(),
			published_at TIMESTAMPTZ,
			status TEXT,
			dedupe_key TEXT
		);
	`)
	if err != nil {
		t.Fatal(err)
	}
	return pool
}

func TestRepository_CreateIntentConflict(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t, ctx)
	repo := pg.NewRepository(pool)

	designerID := uuid.New()
	slot := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	intent := domain.NewIntent(designerID, uuid.New(), slot, 5*time.Minute)
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateIntent(ctx, tx, intent)
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Second hold for the same (designer, slot) while the first is active.
	conflicting := domain.NewIntent(designerID, uuid.New(), slot, 5*time.Minute)
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateIntent(ctx, tx, conflicting)
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}

	// After release the slot is free again.
	if err := repo.ReleaseIntent(ctx, intent.ID); err != nil {
		t.Fatal(err)
	}
	retry := domain.NewIntent(designerID, uuid.New(), slot, 5*time.Minute)
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateIntent(ctx, tx, retry)
	})
	if err != nil {
		t.Errorf("expected hold to succeed after release, got %v", err)
	}
}

func TestRepository_CreateReservationConsumesIntent(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t, ctx)
	repo := pg.NewRepository(pool)

	userID := uuid.New()
	intent := domain.NewIntent(uuid.New(), userID, time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC), 5*time.Minute)
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateIntent(ctx, tx, intent)
	})
	if err != nil {
		t.Fatal(err)
	}

	res := domain.Reservation{
		ID:               uuid.New(),
		IntentID:         intent.ID,
		DesignerID:       intent.DesignerID,
		UserID:           userID,
		DateTime:         intent.DateTime,
		Fee:              50000,
		Mode:             domain.ModeInPerson,
		PaymentID:        "pay_01",
		TransactionToken: "T1234567890",
		Status:           domain.ReservationAwaitingPayment,
	}
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateReservation(ctx, tx, res)
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := repo.GetIntent(ctx, intent.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("intent must be consumed after commit, got %v", err)
	}

	list, err := repo.ListReservations(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Status != domain.ReservationAwaitingPayment || list[0].Fee != 50000 {
		t.Errorf("unexpected reservation list: %+v", list)
	}
}

func TestRepository_CreateReservationOncePerIntent(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t, ctx)
	repo := pg.NewRepository(pool)

	userID := uuid.New()
	intent := domain.NewIntent(uuid.New(), userID, time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC), 5*time.Minute)
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateIntent(ctx, tx, intent)
	})
	if err != nil {
		t.Fatal(err)
	}

	res := domain.Reservation{
		ID:               uuid.New(),
		IntentID:         intent.ID,
		DesignerID:       intent.DesignerID,
		UserID:           userID,
		DateTime:         intent.DateTime,
		Fee:              50000,
		Mode:             domain.ModeInPerson,
		PaymentID:        "pay_01",
		TransactionToken: "T1234567890",
		Status:           domain.ReservationConfirmed,
	}
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateReservation(ctx, tx, res)
	})
	if err != nil {
		t.Fatal(err)
	}

	// A second commit for the same intent must be rejected, not duplicated.
	second := res
	second.ID = uuid.New()
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateReservation(ctx, tx, second)
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on consumed intent, got %v", err)
	}

	list, err := repo.ListReservations(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("expected exactly one reservation, got %d", len(list))
	}
}
