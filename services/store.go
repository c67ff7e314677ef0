package services

import (
	"context"
	"time"

	"event-ticketing/models"
)

// CommitBooking carries the three mutations of a booking commit: the seat
// counter increment, the display price update and the booking insert. A
// Store applies them atomically or not at all.
type CommitBooking struct {
	CustomerID string
	EventID    string
	TierID     string
	Qty        int
	PricePaid  float64
	PerTicket  float64
	TicketHash string
	CreatedAt  time.Time
}

// BookingRecord is a booking joined with its customer, event and tier refs,
// as needed by verification and audit listings.
type BookingRecord struct {
	models.Booking
	UserPhone  string
	EventTitle string
	TierName   string
}

// Store is the relational collaborator of the booking transaction. The
// production implementation sits on PocketBase; tests use an in-memory one.
type Store interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	GetTier(ctx context.Context, tierID string) (*models.Tier, error)

	// EventSeatsSold sums seats_sold across all tiers of the event; the
	// pricing policy uses it as the event-wide demand signal.
	EventSeatsSold(ctx context.Context, eventID string) (int, error)

	GetOrCreateCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, name, email, phone, passwordHash string) (*models.Customer, error)

	TicketHashExists(ctx context.Context, ticketHash string) (bool, error)

	// Commit applies the booking commit atomically, re-checking tier
	// capacity inside the transaction. It returns ErrInsufficientInventory
	// when the re-check fails and ErrIdentifierCollision when the unique
	// ticket_hash index rejects the insert.
	Commit(ctx context.Context, c CommitBooking) (*models.Booking, error)

	FindBookingByTicketHash(ctx context.Context, ticketHash string) (*BookingRecord, error)
	MarkVerified(ctx context.Context, bookingID string) error

	// Ledger reconciliation support.
	MarkLedgerSynced(ctx context.Context, bookingID string) error
	UnsyncedBookings(ctx context.Context, limit int) ([]BookingRecord, error)
}
