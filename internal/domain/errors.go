package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("slot already held")
	ErrInvalidInput         = errors.New("invalid input")
	ErrAuthRequired         = errors.New("authentication required")
	ErrSessionCreation      = errors.New("payment session creation failed")
	ErrCommit               = errors.New("reservation commit failed")
)
