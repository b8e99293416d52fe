package http

import (
	"encoding/json"
	"net/http"
	"time"

	mongoadapter "github.com/blisslabs/consulting-reservations/internal/adapters/mongo"
	"github.com/blisslabs/consulting-reservations/internal/adapters/pg"
	"github.com/blisslabs/consulting-reservations/internal/adapters/rabbit"
	redisadapter "github.com/blisslabs/consulting-reservations/internal/adapters/redis"
	"github.com/blisslabs/consulting-reservations/internal/booking"
	"github.com/blisslabs/consulting-reservations/internal/config"
	"github.com/blisslabs/consulting-reservations/internal/domain"
	"github.com/blisslabs/consulting-reservations/internal/idempotency"
	"github.com/blisslabs/consulting-reservations/internal/observability"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Handlers struct {
	cfg       *config.Config
	flow      *booking.Flow
	backend   *pg.Backend
	cache     *redisadapter.Cache
	idemp     *idempotency.Idempotency
	audit     *mongoadapter.AuditLogger
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewHandlers(cfg *config.Config, flow *booking.Flow, backend *pg.Backend, cache *redisadapter.Cache, idemp *idempotency.Idempotency, audit *mongoadapter.AuditLogger, rabbitPub *rabbit.Publisher, logger observability.Logger) *Handlers {
	return &Handlers{
		cfg:       cfg,
		flow:      flow,
		backend:   backend,
		cache:     cache,
		idemp:     idemp,
		audit:     audit,
		rabbitPub: rabbitPub,
		logger:    logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) []byte {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrConflict):
		http.Error(w, "slot already held or booked", http.StatusConflict)
	case errors.Is(err, domain.ErrAuthRequired):
		http.Error(w, "authentication required", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrSessionCreation):
		http.Error(w, "payment session creation failed", http.StatusBadGateway)
	case errors.Is(err, domain.ErrCommit):
		http.Error(w, "reservation commit failed", http.StatusInternalServerError)
	case errors.Is(err, domain.ErrSerializationFailure):
		http.Error(w, "conflict, try again", http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handlers) CreateHold(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		DesignerID uuid.UUID   `json:"designer_id"`
		DateTime   time.Time   `json:"date_time"`
		Mode       domain.Mode `json:"mode"`
		Price      int64       `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	draft := domain.ReservationDraft{
		DesignerID: req.DesignerID,
		Mode:       req.Mode,
		DateTime:   req.DateTime,
		Price:      req.Price,
	}
	intent, err := h.flow.AcquireHold(r.Context(), user.ID, draft)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.audit.LogHold(r.Context(), intent); err != nil {
		h.logger.WithError(err).Warn("audit log failed for hold")
	}

	data := writeJSON(w, http.StatusCreated, map[string]interface{}{
		"intent_id":  intent.ID,
		"expires_at": intent.ExpiresAt.Format(time.RFC3339),
	})
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) CreatePaymentSession(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		IntentID   uuid.UUID            `json:"intent_id"`
		DesignerID uuid.UUID            `json:"designer_id"`
		DateTime   time.Time            `json:"date_time"`
		Mode       domain.Mode          `json:"mode"`
		Amount     int64                `json:"amount"`
		Method     domain.PaymentMethod `json:"method"`
		Device     domain.Device        `json:"device"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	draft := domain.ReservationDraft{
		DesignerID: req.DesignerID,
		Mode:       req.Mode,
		DateTime:   req.DateTime,
		Price:      req.Amount,
	}
	session, redirectURL, err := h.flow.OpenSession(r.Context(), user.ID, req.IntentID, draft, req.Method, req.Device)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.audit.LogSession(r.Context(), user.ID, session); err != nil {
		h.logger.WithError(err).Warn("audit log failed for payment session")
	}

	resp := map[string]interface{}{
		"session_id": session.ID,
		"tid":        session.TransactionToken,
		"method":     session.Method,
		"amount":     session.Amount,
		"status":     session.Status,
	}
	if redirectURL != "" {
		resp["redirect_url"] = redirectURL
	}
	if session.Method == domain.MethodBank {
		resp["bank_account"] = session.BankAccount
		resp["bank_holder"] = session.BankHolder
	}
	data := writeJSON(w, http.StatusCreated, resp)
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) ConfirmBankTransfer(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		IntentID uuid.UUID `json:"intent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := h.flow.FinalizeBank(r.Context(), user.ID, req.IntentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	data := h.writeOutcome(w, r, outcome)
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusOK, Result: data})
}

func (h *Handlers) GatewayReturn(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		TransactionToken string                `json:"tid"`
		Outcome          domain.GatewayOutcome `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := h.flow.FinalizeReturn(r.Context(), user.ID, req.TransactionToken, req.Outcome)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if outcome.State == domain.StateCancelled {
		payload, _ := json.Marshal(map[string]interface{}{"user_id": user.ID, "tid": req.TransactionToken})
		msg := amqp.Publishing{
			MessageId:   uuid.New().String(),
			ContentType: "application/json",
			Body:        payload,
		}
		if err := h.rabbitPub.Publish(r.Context(), "reservation.cancelled", msg); err != nil {
			h.logger.WithError(err).Warn("failed to publish cancellation event")
		}
	}
	data := h.writeOutcome(w, r, outcome)
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusOK, Result: data})
}

func (h *Handlers) writeOutcome(w http.ResponseWriter, r *http.Request, outcome booking.Outcome) []byte {
	resp := map[string]interface{}{"state": outcome.State}
	if outcome.Reservation != nil {
		resp["reservation_id"] = outcome.Reservation.ID
		resp["reservation_status"] = outcome.Reservation.Status

		if err := h.audit.LogReservation(r.Context(), *outcome.Reservation); err != nil {
			h.logger.WithError(err).Warn("audit log failed for reservation")
		}
	}
	return writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	if cached, err := h.cache.GetReservationList(r.Context(), user.ID); err == nil && cached != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Write(cached)
		return
	}

	reservations, err := h.backend.ListReservations(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type item struct {
		ID         uuid.UUID                `json:"id"`
		DesignerID uuid.UUID                `json:"designer_id"`
		DateTime   time.Time                `json:"date_time"`
		Fee        int64                    `json:"fee"`
		Mode       domain.Mode              `json:"mode"`
		Status     domain.ReservationStatus `json:"status"`
	}
	items := make([]item, 0, len(reservations))
	for _, res := range reservations {
		items = append(items, item{
			ID:         res.ID,
			DesignerID: res.DesignerID,
			DateTime:   res.DateTime,
			Fee:        res.Fee,
			Mode:       res.Mode,
			Status:     res.Status,
		})
	}

	data, _ := json.Marshal(map[string]interface{}{"reservations": items})
	if err := h.cache.SetReservationList(r.Context(), user.ID, data, 5*time.Minute); err != nil {
		h.logger.WithError(err).Warn("failed to cache reservation list")
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
