package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"event-ticketing/internal/status"
	"event-ticketing/models"
	"event-ticketing/security"
	"event-ticketing/services"
)

type BookingHandler struct {
	app            *pocketbase.PocketBase
	bookingService *services.BookingService
	verifyService  *services.VerifyService
	limiter        *security.RateLimiter
}

func NewBookingHandler(app *pocketbase.PocketBase, bookingService *services.BookingService, verifyService *services.VerifyService, limiter *security.RateLimiter) *BookingHandler {
	return &BookingHandler{
		app:            app,
		bookingService: bookingService,
		verifyService:  verifyService,
		limiter:        limiter,
	}
}

// BookTicket - run the booking transaction for one request
func (h *BookingHandler) BookTicket(e *core.RequestEvent) error {
	var req models.BookingRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	ctx := e.Request.Context()

	if err := h.limiter.Allow(ctx, e.RealIP()); err != nil {
		return apiError(err)
	}

	booking, err := h.bookingService.BookTicket(ctx, req)
	if err != nil {
		// The sale can be committed while the chain append failed; report
		// the booking together with the pending audit trail.
		if booking != nil && errors.Is(err, status.ErrLedgerWriteFailure) {
			return e.JSON(http.StatusAccepted, map[string]any{
				"booking": booking,
				"warning": "booking committed; ledger append pending reconciliation",
			})
		}
		return apiError(err)
	}

	return e.JSON(http.StatusOK, booking)
}

// GetPrice - price a prospective booking without committing anything
func (h *BookingHandler) GetPrice(e *core.RequestEvent) error {
	var req models.PriceRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	price, err := h.bookingService.GetDynamicPrice(e.Request.Context(), req)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, price)
}

// VerifyTicket - O(1) lookup of a ticket hash against the booking store
func (h *BookingHandler) VerifyTicket(e *core.RequestEvent) error {
	ticketHash := e.Request.PathValue("ticketHash")
	if ticketHash == "" {
		return apis.NewBadRequestError("Missing ticket hash", nil)
	}

	ticket, err := h.verifyService.VerifyTicket(e.Request.Context(), ticketHash)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, ticket)
}

// GetLedger - dump the event's chain for offline audit
func (h *BookingHandler) GetLedger(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	if _, err := h.app.FindRecordById("events", eventID); err != nil {
		return apis.NewNotFoundError("Event not found", nil)
	}

	chain, err := h.bookingService.OpenChain(eventID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"event_id": eventID,
		"length":   chain.Length(),
		"blocks":   chain.Blocks,
	})
}

// AuditLedger - re-prove chain integrity and report unsynced bookings
func (h *BookingHandler) AuditLedger(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	if _, err := h.app.FindRecordById("events", eventID); err != nil {
		return apis.NewNotFoundError("Event not found", nil)
	}

	length, unsynced, err := h.verifyService.AuditChain(e.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, status.ErrLedgerCorrupt) {
			return e.JSON(http.StatusOK, map[string]any{
				"event_id": eventID,
				"valid":    false,
				"length":   length,
				"error":    err.Error(),
			})
		}
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"event_id":          eventID,
		"valid":             true,
		"length":            length,
		"unsynced_bookings": unsynced,
	})
}
