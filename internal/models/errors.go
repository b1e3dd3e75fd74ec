package models

import "errors"

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrInvalidQuota      = errors.New("ticket quota cannot be less than tickets sold")
	ErrQuotaExhausted    = errors.New("ticket quota exhausted")
	ErrQuotaConflict     = errors.New("ticket quota changed concurrently")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrEventNotStarted   = errors.New("event not started")
	ErrEventEnded        = errors.New("event ended")
	ErrTicketAlreadyUsed = errors.New("ticket already used")
	ErrGenerationFailed  = errors.New("failed to generate unique ticket code")

	ErrInvalidPaymentMethod = errors.New("payment method must be cash or online")
	ErrInvalidTicketToken   = errors.New("invalid ticket token")

	// ErrDuplicateCode is returned by the ticket store when the code uniqueness
	// constraint rejects an insert.
	ErrDuplicateCode = errors.New("duplicate ticket code")
)
