package redis_test

import (
	"context"
	"testing"
	"time"

	redisadapter "github.com/blisslabs/consulting-reservations/internal/adapters/redis"
	"github.com/blisslabs/consulting-reservations/internal/domain"
	"github.com/google/uuid"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T, ctx context.Context) *redisclient.Client {
	t.Helper()

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatal(err)
	}
	return redisclient.NewClient(&redisclient.Options{Addr: host + ":" + port.Port()})
}

func TestLedgerStore(t *testing.T) {
	ctx := context.Background()
	client := setupRedis(t, ctx)
	store := redisadapter.NewLedgerStore(client, time.Hour)

	userID := uuid.New()
	rec := domain.PendingTransactionRecord{
		IntentID:         uuid.New(),
		SessionID:        "pay_01",
		TransactionToken: "T1234567890",
		Method:           domain.MethodGateway,
		Draft: domain.ReservationDraft{
			DesignerID: uuid.New(),
			Mode:       domain.ModeRemote,
			DateTime:   time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
			Price:      40000,
		},
	}

	// Empty store reads as absent, not as an error.
	if _, ok, err := store.Get(ctx, userID); err != nil || ok {
		t.Fatalf("expected empty ledger, got ok=%v err=%v", ok, err)
	}

	if err := store.Put(ctx, userID, rec); err != nil {
		t.Fatal(err)
	}

	got, ok, err := store.Get(ctx, userID)
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if got != rec {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, rec)
	}

	// Repeated reads return the same record.
	again, ok, err := store.Get(ctx, userID)
	if err != nil || !ok || again != got {
		t.Errorf("get is not idempotent: %+v vs %+v", again, got)
	}

	// Put overwrites the single pending record.
	updated := rec
	updated.SessionID = "pay_02"
	if err := store.Put(ctx, userID, updated); err != nil {
		t.Fatal(err)
	}
	got, _, _ = store.Get(ctx, userID)
	if got.SessionID != "pay_02" {
		t.Errorf("put must overwrite, got %+v", got)
	}

	if err := store.Clear(ctx, userID); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.Get(ctx, userID); ok {
		t.Error("record must be gone after clear")
	}

	// Clearing an empty ledger is a no-op.
	if err := store.Clear(ctx, userID); err != nil {
		t.Errorf("clear on empty ledger: %v", err)
	}
}

func TestIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	client := setupRedis(t, ctx)
	store := redisadapter.NewIdempotency(client, time.Hour)

	key := uuid.New().String()
	if got, err := store.Get(ctx, key); err != nil || got != nil {
		t.Fatalf("cold key must miss: got %+v err %v", got, err)
	}

	want := redisadapter.IdempResponse{Status: 201, Result: []byte(`{"intent_id":"i1"}`)}
	if err := store.Set(ctx, key, want); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, key)
	if err != nil || got == nil {
		t.Fatalf("get failed: got %+v err %v", got, err)
	}
	if got.Status != want.Status || string(got.Result) != string(want.Result) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestSlotLock(t *testing.T) {
	ctx := context.Background()
	client := setupRedis(t, ctx)
	cache := redisadapter.NewCache(client)

	designerID := uuid.New().String()
	slot := "2024-06-01T10:00:00Z"

	ok, err := cache.SetSlotLock(ctx, designerID, slot, uuid.New().String(), time.Minute)
	if err != nil || !ok {
		t.Fatalf("first lock must succeed: ok=%v err=%v", ok, err)
	}

	ok, err = cache.SetSlotLock(ctx, designerID, slot, uuid.New().String(), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("second lock on the same slot must fail")
	}

	if err := cache.DeleteSlotLock(ctx, designerID, slot); err != nil {
		t.Fatal(err)
	}
	ok, _ = cache.SetSlotLock(ctx, designerID, slot, uuid.New().String(), time.Minute)
	if !ok {
		t.Error("lock must succeed after release")
	}
}
