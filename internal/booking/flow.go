// Package booking orchestrates the booking-payment transaction: acquire a hold
// on a slot, open a payment session, and finalize the outcome. The flow
// survives a full loss of in-memory state between the session and the outcome
// by writing a pending transaction record to the ledger before any gateway
// redirect.
package booking

import (
	"context"
	"time"

	"github.com/blisslabs/consulting-reservations/internal/domain"
	"github.com/blisslabs/consulting-reservations/internal/ledger"
	"github.com/blisslabs/consulting-reservations/internal/observability"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Backend is the reservation backend: the system of record for holds and
// reservations.
type Backend interface {
	HoldSlot(ctx context.Context, designerID, userID uuid.UUID, dateTime time.Time) (domain.ReservationIntent, error)
	CreateReservation(ctx context.Context, res domain.Reservation) error
}

// PaymentGateway opens payment sessions with the external payment processor.
type PaymentGateway interface {
	CreateSession(ctx context.Context, intentID, userID uuid.UUID, method domain.PaymentMethod, amount int64) (domain.PaymentSession, error)
}

// Catalog resolves designer profiles for draft validation.
type Catalog interface {
	GetDesigner(ctx context.Context, id uuid.UUID) (domain.Designer, error)
}

// Invalidator drops cached reservation lists after a commit. Failures are
// logged and swallowed; the reservation is already durable server-side.
type Invalidator interface {
	InvalidateReservations(ctx context.Context, userID uuid.UUID) error
}

type BankDetails struct {
	Account string
	Holder  string
}

type Flow struct {
	backend Backend
	gateway PaymentGateway
	store   ledger.Store
	catalog Catalog
	cache   Invalidator
	bank    BankDetails
	logger  observability.Logger
}

func NewFlow(backend Backend, gw PaymentGateway, store ledger.Store, catalog Catalog, cache Invalidator, bank BankDetails, logger observability.Logger) *Flow {
	return &Flow{
		backend: backend,
		gateway: gw,
		store:   store,
		catalog: catalog,
		cache:   cache,
		bank:    bank,
		logger:  logger,
	}
}

// Outcome is what the presentation layer renders after a finalizer step.
type Outcome struct {
	State       domain.FlowState
	Reservation *domain.Reservation
}

// AcquireHold validates the draft against the designer catalog and asks the
// backend for a short-lived hold. A conflict is authoritative: the caller must
// surface it and go back to slot selection, never retry the same slot.
func (f *Flow) AcquireHold(ctx context.Context, userID uuid.UUID, draft domain.ReservationDraft) (domain.ReservationIntent, error) {
	designer, err := f.catalog.GetDesigner(ctx, draft.DesignerID)
	if err != nil {
		return domain.ReservationIntent{}, err
	}
	if !designer.Offers(draft.Mode) {
		return domain.ReservationIntent{}, errors.Wrapf(domain.ErrInvalidInput,
			"designer %s does not offer mode %s", draft.DesignerID, draft.Mode)
	}
	if fee := designer.Fee(draft.Mode); fee != draft.Price {
		return domain.ReservationIntent{}, errors.Wrapf(domain.ErrInvalidInput,
			"draft price %d does not match designer fee %d", draft.Price, fee)
	}
	if !draft.DateTime.After(time.Now()) {
		return domain.ReservationIntent{}, errors.Wrap(domain.ErrInvalidInput, "slot is in the past")
	}

	intent, err := f.backend.HoldSlot(ctx, draft.DesignerID, userID, draft.DateTime)
	if errors.Is(err, domain.ErrConflict) {
		observability.HoldsTotal.WithLabelValues("conflict").Inc()
		return domain.ReservationIntent{}, err
	}
	if err != nil {
		observability.HoldsTotal.WithLabelValues("error").Inc()
		return domain.ReservationIntent{}, err
	}
	observability.HoldsTotal.WithLabelValues("ok").Inc()
	return intent, nil
}

// OpenSession opens a payment session for a held slot and writes the pending
// transaction record. The ledger put completes before the redirect URL is
// released to the caller; redirecting hands control to a process we do not
// own, so persisting after the fact would risk an unrecoverable transaction.
// A gateway session is one-shot: once a redirect URL has been issued for an
// intent, reopening is refused.
func (f *Flow) OpenSession(ctx context.Context, userID uuid.UUID, intentID uuid.UUID, draft domain.ReservationDraft, method domain.PaymentMethod, device domain.Device) (domain.PaymentSession, string, error) {
	if method != domain.MethodBank && method != domain.MethodGateway {
		return domain.PaymentSession{}, "", errors.Wrapf(domain.ErrInvalidInput,
			"unknown payment method %q", method)
	}

	existing, ok, err := f.store.Get(ctx, userID)
	if err != nil {
		return domain.PaymentSession{}, "", err
	}
	if ok && existing.IntentID == intentID && existing.Method == domain.MethodGateway {
		return domain.PaymentSession{}, "", errors.Wrap(domain.ErrConflict,
			"gateway session already open for this intent")
	}

	session, err := f.gateway.CreateSession(ctx, intentID, userID, method, draft.Price)
	if err != nil {
		return domain.PaymentSession{}, "", err
	}
	observability.PaymentSessionsTotal.WithLabelValues(string(method)).Inc()

	if method == domain.MethodBank {
		session.BankAccount = f.bank.Account
		session.BankHolder = f.bank.Holder
	}

	rec := domain.PendingTransactionRecord{
		IntentID:         intentID,
		SessionID:        session.ID,
		TransactionToken: session.TransactionToken,
		Method:           method,
		Draft:            draft,
	}
	if err := f.store.Put(ctx, userID, rec); err != nil {
		// Without the record the redirect is unrecoverable. Abort rather
		// than release the URL.
		return domain.PaymentSession{}, "", errors.Wrap(err, "persist pending transaction")
	}

	redirectURL := ""
	if method == domain.MethodGateway {
		redirectURL = session.RedirectURL(device)
	}
	return session, redirectURL, nil
}

// FinalizeBank commits the reservation for a bank transfer session inline.
// The terminal state is AWAITING_PAYMENT; the reservation cancels server-side
// if no transfer arrives within the backend's window.
func (f *Flow) FinalizeBank(ctx context.Context, userID, intentID uuid.UUID) (Outcome, error) {
	rec, ok, err := f.store.Get(ctx, userID)
	if err != nil {
		return Outcome{State: domain.StateError}, err
	}
	if !ok {
		return Outcome{State: domain.StateNone}, nil
	}
	if rec.IntentID != intentID {
		return Outcome{State: domain.StateError}, errors.Wrap(domain.ErrInvalidInput,
			"pending transaction does not match intent")
	}
	if rec.Method != domain.MethodBank {
		return Outcome{State: domain.StateError}, errors.Wrap(domain.ErrInvalidInput,
			"pending transaction is not a bank transfer")
	}
	return f.commit(ctx, userID, rec)
}

// FinalizeReturn closes the state machine when the user comes back from the
// gateway. A missing ledger record means nothing is left to finalize; that is
// a neutral reset, not an error.
func (f *Flow) FinalizeReturn(ctx context.Context, userID uuid.UUID, token string, result domain.GatewayOutcome) (Outcome, error) {
	rec, ok, err := f.store.Get(ctx, userID)
	if err != nil {
		return Outcome{State: domain.StateError}, err
	}
	if !ok {
		f.logger.WithField("user_id", userID).Warn("gateway return with no pending transaction")
		observability.FinalizeTotal.WithLabelValues(string(domain.StateNone)).Inc()
		return Outcome{State: domain.StateNone}, nil
	}
	if token != "" && token != rec.TransactionToken {
		f.logger.WithField("user_id", userID).Warn("gateway return token does not match pending transaction")
		observability.FinalizeTotal.WithLabelValues(string(domain.StateNone)).Inc()
		return Outcome{State: domain.StateNone}, nil
	}

	if result != domain.OutcomeSuccess {
		if err := f.store.Clear(ctx, userID); err != nil {
			return Outcome{State: domain.StateError}, err
		}
		observability.FinalizeTotal.WithLabelValues(string(domain.StateCancelled)).Inc()
		return Outcome{State: domain.StateCancelled}, nil
	}
	return f.commit(ctx, userID, rec)
}

// commit creates the reservation, invalidates cached lists best-effort, and
// clears the ledger. On failure the ledger is kept so the same session and
// intent can be retried manually.
func (f *Flow) commit(ctx context.Context, userID uuid.UUID, rec domain.PendingTransactionRecord) (Outcome, error) {
	res := domain.NewReservation(rec, userID)
	if err := f.backend.CreateReservation(ctx, res); err != nil {
		observability.FinalizeTotal.WithLabelValues(string(domain.StateError)).Inc()
		return Outcome{State: domain.StateError}, errors.Mark(err, domain.ErrCommit)
	}

	if err := f.cache.InvalidateReservations(ctx, userID); err != nil {
		f.logger.WithError(err).WithField("user_id", userID).Warn("reservation list invalidation failed")
	}

	if err := f.store.Clear(ctx, userID); err != nil {
		// The reservation is durable; a stale record only risks a spurious
		// re-finalize attempt, which the backend rejects on the consumed
		// intent.
		f.logger.WithError(err).WithField("user_id", userID).Error("failed to clear transaction ledger")
	}

	state := domain.StateConfirmed
	if rec.Method == domain.MethodBank {
		state = domain.StateAwaitingPayment
	}
	observability.FinalizeTotal.WithLabelValues(string(state)).Inc()
	return Outcome{State: state, Reservation: &res}, nil
}
