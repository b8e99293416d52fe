package domain

import (
	"time"

	"github.com/google/uuid"
)

type Mode string

const (
	ModeInPerson Mode = "IN_PERSON"
	ModeRemote   Mode = "REMOTE"
)

type PaymentMethod string

const (
	MethodBank    PaymentMethod = "BANK"
	MethodGateway PaymentMethod = "GATEWAY"
)

type Device string

const (
	DeviceDesktop Device = "desktop"
	DeviceMobile  Device = "mobile"
)

// ReservationDraft is the immutable snapshot of the user's selection. It is
// carried through the flow unchanged from the moment a mode is chosen.
type ReservationDraft struct {
	DesignerID uuid.UUID `json:"designer_id"`
	Mode       Mode      `json:"mode"`
	DateTime   time.Time `json:"date_time"`
	Price      int64     `json:"price"`
}

// ReservationIntent is the server-side hold on a (designer, dateTime) slot.
// At most one non-expired intent exists per pair.
type ReservationIntent struct {
	ID         uuid.UUID
	DesignerID uuid.UUID
	UserID     uuid.UUID
	DateTime   time.Time
	ExpiresAt  time.Time
}

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionConfirmed SessionStatus = "confirmed"
	SessionCancelled SessionStatus = "cancelled"
)

// PaymentSession is what the payment backend hands back once a method is
// chosen. Redirect URLs are only populated for MethodGateway.
type PaymentSession struct {
	ID                 string
	TransactionToken   string
	Method             PaymentMethod
	Amount             int64
	Status             SessionStatus
	RedirectURLDesktop string
	RedirectURLMobile  string

	// Bank transfer continuation data, populated for MethodBank only.
	BankAccount string
	BankHolder  string
}

// RedirectURL picks the gateway URL for the device class. Empty for bank
// transfer sessions.
func (s PaymentSession) RedirectURL(device Device) string {
	if device == DeviceMobile {
		return s.RedirectURLMobile
	}
	return s.RedirectURLDesktop
}

type ReservationStatus string

const (
	ReservationAwaitingPayment ReservationStatus = "AWAITING_PAYMENT"
	ReservationConfirmed       ReservationStatus = "CONFIRMED"
	ReservationCancelled       ReservationStatus = "CANCELLED"
)

// Reservation is the final, backend-owned entity created by the commit call.
type Reservation struct {
	ID               uuid.UUID
	IntentID         uuid.UUID
	DesignerID       uuid.UUID
	UserID           uuid.UUID
	DateTime         time.Time
	Fee              int64
	Mode             Mode
	PaymentID        string
	TransactionToken string
	Status           ReservationStatus
}

// PendingTransactionRecord is the durable record of an in-flight transaction,
// written before any control transfer that could lose the in-memory flow.
type PendingTransactionRecord struct {
	IntentID         uuid.UUID        `json:"intent_id"`
	SessionID        string           `json:"session_id"`
	TransactionToken string           `json:"transaction_token"`
	Method           PaymentMethod    `json:"method"`
	Draft            ReservationDraft `json:"draft"`
}

// User is the identity resolved through the external identity provider.
type User struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// Designer is the catalog profile a draft is validated against.
type Designer struct {
	ID          uuid.UUID
	Name        string
	Region      string
	ShopAddress string
	Modes       []Mode
	InPersonFee int64
	RemoteFee   int64
}

// Offers reports whether the designer accepts the given consulting mode.
func (d Designer) Offers(mode Mode) bool {
	for _, m := range d.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Fee returns the designer's fee for the given mode.
func (d Designer) Fee(mode Mode) int64 {
	if mode == ModeRemote {
		return d.RemoteFee
	}
	return d.InPersonFee
}
