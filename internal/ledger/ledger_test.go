package ledger_test

import (
	"testing"
	"time"

	"github.com/blisslabs/consulting-reservations/internal/domain"
	"github.com/blisslabs/consulting-reservations/internal/ledger"
	"github.com/google/uuid"
)

func TestRecordRoundTrip(t *testing.T) {
	rec := domain.PendingTransactionRecord{
		IntentID:         uuid.New(),
		SessionID:        "pay_01",
		TransactionToken: "T1234567890",
		Method:           domain.MethodGateway,
		Draft: domain.ReservationDraft{
			DesignerID: uuid.New(),
			Mode:       domain.ModeRemote,
			DateTime:   time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
			Price:      50000,
		},
	}

	data, err := ledger.Encode(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := ledger.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != rec {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, rec)
	}

	// Decoding the same bytes twice must yield the same record.
	again, err := ledger.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if again != got {
		t.Errorf("repeated decode differs: %+v vs %+v", again, got)
	}
}
