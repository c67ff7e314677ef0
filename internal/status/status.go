package status

import "errors"

var (
	ErrInvalidInput          = errors.New("booking: invalid input")
	ErrEventNotFound         = errors.New("event: event not found")
	ErrTierNotFound          = errors.New("tier: tier not found")
	ErrInsufficientInventory = errors.New("tier: not enough tickets available in this tier")
	ErrPricingUnavailable    = errors.New("pricing: predictor unavailable")
	ErrIdentifierCollision   = errors.New("ticket: identifier collision retries exhausted")
	ErrLedgerWriteFailure    = errors.New("ledger: append failed")
	ErrLedgerCorrupt         = errors.New("ledger: chain failed integrity verification")
	ErrTicketNotFound        = errors.New("ticket: ticket hash not found")
	ErrCustomerNotFound      = errors.New("customer: customer not found")
	ErrRatingWithoutBooking  = errors.New("rating: no booking for this event")
	ErrRateLimited           = errors.New("security: too many requests")
)
