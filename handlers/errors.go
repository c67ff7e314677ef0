package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"

	"event-ticketing/internal/status"
)

// apiError maps the service error taxonomy onto HTTP responses.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrInvalidInput):
		return apis.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrTierNotFound),
		errors.Is(err, status.ErrTicketNotFound),
		errors.Is(err, status.ErrCustomerNotFound):
		return apis.NewNotFoundError(err.Error(), nil)
	case errors.Is(err, status.ErrInsufficientInventory):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)
	case errors.Is(err, status.ErrRatingWithoutBooking):
		return apis.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, status.ErrPricingUnavailable):
		return apis.NewApiError(http.StatusServiceUnavailable, err.Error(), nil)
	case errors.Is(err, status.ErrRateLimited):
		return apis.NewApiError(http.StatusTooManyRequests, err.Error(), nil)
	case errors.Is(err, status.ErrIdentifierCollision),
		errors.Is(err, status.ErrLedgerWriteFailure),
		errors.Is(err, status.ErrLedgerCorrupt):
		return apis.NewApiError(http.StatusInternalServerError, err.Error(), nil)
	}
	return apis.NewApiError(http.StatusInternalServerError, "internal error", err)
}
