package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"event-ticketing/internal/status"
	"event-ticketing/models"
)

// PBStore implements Store on top of the PocketBase app and its embedded
// SQLite database.
type PBStore struct {
	app core.App
}

func NewPBStore(app core.App) *PBStore {
	return &PBStore{app: app}
}

func (s *PBStore) GetEvent(_ context.Context, eventID string) (*models.Event, error) {
	record, err := s.app.FindRecordById("events", eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", status.ErrEventNotFound, eventID)
	}

	return &models.Event{
		ID:          record.Id,
		Title:       record.GetString("title"),
		Description: record.GetString("description"),
		Location:    record.GetString("location"),
		StartTime:   record.GetDateTime("start_time").Time(),
		EndTime:     record.GetDateTime("end_time").Time(),
	}, nil
}

func (s *PBStore) GetTier(_ context.Context, tierID string) (*models.Tier, error) {
	record, err := s.app.FindRecordById("tiers", tierID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", status.ErrTierNotFound, tierID)
	}
	return tierFromRecord(record), nil
}

func (s *PBStore) EventSeatsSold(_ context.Context, eventID string) (int, error) {
	tiers, err := s.app.FindRecordsByFilter(
		"tiers",
		"event = {:event}",
		"",
		0,
		0,
		dbx.Params{"event": eventID},
	)
	if err != nil {
		return 0, fmt.Errorf("sum seats sold for event %s: %w", eventID, err)
	}

	sold := 0
	for _, tier := range tiers {
		sold += tier.GetInt("seats_sold")
	}
	return sold, nil
}

func (s *PBStore) GetOrCreateCustomerByPhone(_ context.Context, phone string) (*models.Customer, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"customers",
		"phone = {:phone}",
		dbx.Params{"phone": phone},
	)
	if err == nil {
		return customerFromRecord(record), nil
	}

	collection, err := s.app.FindCollectionByNameOrId("customers")
	if err != nil {
		return nil, fmt.Errorf("find customers collection: %w", err)
	}

	record = core.NewRecord(collection)
	record.Set("name", "Customer "+phone)
	record.Set("phone", phone)
	if err := s.app.Save(record); err != nil {
		return nil, fmt.Errorf("create customer for phone %s: %w", phone, err)
	}

	return customerFromRecord(record), nil
}

func (s *PBStore) CreateCustomer(_ context.Context, name, email, phone, passwordHash string) (*models.Customer, error) {
	collection, err := s.app.FindCollectionByNameOrId("customers")
	if err != nil {
		return nil, fmt.Errorf("find customers collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("name", name)
	record.Set("email", email)
	record.Set("phone", phone)
	record.Set("password_hash", passwordHash)
	if err := s.app.Save(record); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: phone already registered", status.ErrInvalidInput)
		}
		return nil, fmt.Errorf("create customer: %w", err)
	}

	return customerFromRecord(record), nil
}

func (s *PBStore) TicketHashExists(_ context.Context, ticketHash string) (bool, error) {
	_, err := s.app.FindFirstRecordByFilter(
		"bookings",
		"ticket_hash = {:hash}",
		dbx.Params{"hash": ticketHash},
	)
	return err == nil, nil
}

func (s *PBStore) Commit(_ context.Context, c CommitBooking) (*models.Booking, error) {
	var booking *models.Booking

	err := s.app.RunInTransaction(func(txApp core.App) error {
		tier, err := txApp.FindRecordById("tiers", c.TierID)
		if err != nil {
			return fmt.Errorf("%w: %s", status.ErrTierNotFound, c.TierID)
		}

		// Re-check capacity inside the transaction; the per-tier lock in
		// the service serializes single-process callers, this guards the
		// invariant against anything else touching the row.
		sold := tier.GetInt("seats_sold")
		total := tier.GetInt("total_seats")
		if sold+c.Qty > total {
			return status.ErrInsufficientInventory
		}

		tier.Set("seats_sold", sold+c.Qty)
		tier.Set("last_price", c.PerTicket)
		if err := txApp.Save(tier); err != nil {
			return fmt.Errorf("update tier %s: %w", c.TierID, err)
		}

		collection, err := txApp.FindCollectionByNameOrId("bookings")
		if err != nil {
			return fmt.Errorf("find bookings collection: %w", err)
		}

		record := core.NewRecord(collection)
		record.Set("customer", c.CustomerID)
		record.Set("event", c.EventID)
		record.Set("tier", c.TierID)
		record.Set("qty", c.Qty)
		record.Set("price_paid", c.PricePaid)
		record.Set("ticket_hash", c.TicketHash)
		record.Set("verified", false)
		record.Set("ledger_synced", false)
		if err := txApp.Save(record); err != nil {
			if isUniqueViolation(err) {
				return status.ErrIdentifierCollision
			}
			return fmt.Errorf("insert booking: %w", err)
		}

		booking = bookingFromRecord(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return booking, nil
}

func (s *PBStore) FindBookingByTicketHash(ctx context.Context, ticketHash string) (*BookingRecord, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"bookings",
		"ticket_hash = {:hash}",
		dbx.Params{"hash": ticketHash},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", status.ErrTicketNotFound, ticketHash)
	}

	return s.joinBookingRefs(record)
}

func (s *PBStore) MarkVerified(_ context.Context, bookingID string) error {
	record, err := s.app.FindRecordById("bookings", bookingID)
	if err != nil {
		return fmt.Errorf("find booking %s: %w", bookingID, err)
	}
	record.Set("verified", true)
	return s.app.Save(record)
}

func (s *PBStore) MarkLedgerSynced(_ context.Context, bookingID string) error {
	record, err := s.app.FindRecordById("bookings", bookingID)
	if err != nil {
		return fmt.Errorf("find booking %s: %w", bookingID, err)
	}
	record.Set("ledger_synced", true)
	return s.app.Save(record)
}

func (s *PBStore) UnsyncedBookings(_ context.Context, limit int) ([]BookingRecord, error) {
	records, err := s.app.FindRecordsByFilter(
		"bookings",
		"ledger_synced = false",
		"created",
		limit,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("list unsynced bookings: %w", err)
	}

	out := make([]BookingRecord, 0, len(records))
	for _, record := range records {
		joined, err := s.joinBookingRefs(record)
		if err != nil {
			return nil, err
		}
		out = append(out, *joined)
	}
	return out, nil
}

func (s *PBStore) joinBookingRefs(record *core.Record) (*BookingRecord, error) {
	booking := bookingFromRecord(record)

	customer, err := s.app.FindRecordById("customers", booking.UserID)
	if err != nil {
		return nil, fmt.Errorf("find customer %s: %w", booking.UserID, err)
	}
	event, err := s.app.FindRecordById("events", booking.EventID)
	if err != nil {
		return nil, fmt.Errorf("find event %s: %w", booking.EventID, err)
	}
	tier, err := s.app.FindRecordById("tiers", booking.TierID)
	if err != nil {
		return nil, fmt.Errorf("find tier %s: %w", booking.TierID, err)
	}

	return &BookingRecord{
		Booking:    *booking,
		UserPhone:  customer.GetString("phone"),
		EventTitle: event.GetString("title"),
		TierName:   tier.GetString("name"),
	}, nil
}

func tierFromRecord(record *core.Record) *models.Tier {
	return &models.Tier{
		ID:         record.Id,
		EventID:    record.GetString("event"),
		Name:       record.GetString("name"),
		BasePrice:  record.GetFloat("base_price"),
		LastPrice:  record.GetFloat("last_price"),
		TotalSeats: record.GetInt("total_seats"),
		SeatsSold:  record.GetInt("seats_sold"),
	}
}

func customerFromRecord(record *core.Record) *models.Customer {
	return &models.Customer{
		ID:        record.Id,
		Name:      record.GetString("name"),
		Email:     record.GetString("email"),
		Phone:     record.GetString("phone"),
		CreatedAt: record.GetDateTime("created").Time(),
	}
}

func bookingFromRecord(record *core.Record) *models.Booking {
	return &models.Booking{
		ID:           record.Id,
		UserID:       record.GetString("customer"),
		EventID:      record.GetString("event"),
		TierID:       record.GetString("tier"),
		Qty:          record.GetInt("qty"),
		PricePaid:    record.GetFloat("price_paid"),
		TicketHash:   record.GetString("ticket_hash"),
		CreatedAt:    record.GetDateTime("created").Time(),
		Verified:     record.GetBool("verified"),
		LedgerSynced: record.GetBool("ledger_synced"),
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
