package domain

// FlowState is the per-transaction state machine of the booking-payment flow.
//
//	PENDING --(bank, commit ok)-------> AWAITING_PAYMENT
//	PENDING --(gateway, redirect)-----> SUSPENDED
//	SUSPENDED --(return success)------> CONFIRMED
//	SUSPENDED --(return cancel)-------> CANCELLED
//	PENDING/SUSPENDED --(commit err)--> ERROR
//
// StateNone is the neutral reset reached when a user returns from the gateway
// with nothing left to finalize.
type FlowState string

const (
	StateNone            FlowState = "NONE"
	StatePending         FlowState = "PENDING"
	StateSuspended       FlowState = "SUSPENDED"
	StateAwaitingPayment FlowState = "AWAITING_PAYMENT"
	StateConfirmed       FlowState = "CONFIRMED"
	StateCancelled       FlowState = "CANCELLED"
	StateError           FlowState = "ERROR"
)

// Terminal reports whether the flow is finished for this transaction.
// StateError is not terminal: the ledger record survives for a manual retry.
func (s FlowState) Terminal() bool {
	switch s {
	case StateAwaitingPayment, StateConfirmed, StateCancelled, StateNone:
		return true
	}
	return false
}

type GatewayOutcome string

const (
	OutcomeSuccess   GatewayOutcome = "success"
	OutcomeCancelled GatewayOutcome = "cancel"
	OutcomeFailed    GatewayOutcome = "fail"
)
