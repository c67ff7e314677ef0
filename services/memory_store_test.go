package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"event-ticketing/internal/status"
	"event-ticketing/models"
)

// memoryStore is the in-memory Store used by the service tests. It applies
// the same transactional rules as PBStore (capacity re-check inside Commit,
// unique ticket_hash) without a database behind it.
type memoryStore struct {
	mu        sync.Mutex
	events    map[string]*models.Event
	tiers     map[string]*models.Tier
	customers map[string]*models.Customer
	bookings  map[string]*models.Booking
	hashes    map[string]string // ticket_hash -> booking id
	nextID    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		events:    make(map[string]*models.Event),
		tiers:     make(map[string]*models.Tier),
		customers: make(map[string]*models.Customer),
		bookings:  make(map[string]*models.Booking),
		hashes:    make(map[string]string),
	}
}

func (m *memoryStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s%04d", prefix, m.nextID)
}

func (m *memoryStore) addEvent(title string, start time.Time) *models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := &models.Event{
		ID:        m.id("evt"),
		Title:     title,
		StartTime: start,
		EndTime:   start.Add(3 * time.Hour),
	}
	m.events[ev.ID] = ev
	return ev
}

func (m *memoryStore) addTier(eventID, name string, basePrice float64, totalSeats, seatsSold int) *models.Tier {
	m.mu.Lock()
	defer m.mu.Unlock()
	tier := &models.Tier{
		ID:         m.id("tier"),
		EventID:    eventID,
		Name:       name,
		BasePrice:  basePrice,
		LastPrice:  basePrice,
		TotalSeats: totalSeats,
		SeatsSold:  seatsSold,
	}
	m.tiers[tier.ID] = tier
	return tier
}

func (m *memoryStore) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", status.ErrEventNotFound, eventID)
	}
	copied := *ev
	return &copied, nil
}

func (m *memoryStore) GetTier(ctx context.Context, tierID string) (*models.Tier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tier, ok := m.tiers[tierID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", status.ErrTierNotFound, tierID)
	}
	copied := *tier
	return &copied, nil
}

func (m *memoryStore) EventSeatsSold(ctx context.Context, eventID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sold := 0
	for _, tier := range m.tiers {
		if tier.EventID == eventID {
			sold += tier.SeatsSold
		}
	}
	return sold, nil
}

func (m *memoryStore) GetOrCreateCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.Phone == phone {
			copied := *c
			return &copied, nil
		}
	}
	c := &models.Customer{
		ID:        m.id("cust"),
		Name:      "Customer " + phone,
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	}
	m.customers[c.ID] = c
	copied := *c
	return &copied, nil
}

func (m *memoryStore) CreateCustomer(ctx context.Context, name, email, phone, passwordHash string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.Phone == phone {
			return nil, fmt.Errorf("%w: phone %s already registered", status.ErrInvalidInput, phone)
		}
	}
	c := &models.Customer{
		ID:        m.id("cust"),
		Name:      name,
		Email:     email,
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	}
	m.customers[c.ID] = c
	copied := *c
	return &copied, nil
}

func (m *memoryStore) TicketHashExists(ctx context.Context, ticketHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.hashes[ticketHash]
	return ok, nil
}

func (m *memoryStore) Commit(ctx context.Context, c CommitBooking) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tier, ok := m.tiers[c.TierID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", status.ErrTierNotFound, c.TierID)
	}
	if tier.SeatsSold+c.Qty > tier.TotalSeats {
		return nil, fmt.Errorf("%w: %d requested, %d left", status.ErrInsufficientInventory, c.Qty, tier.TotalSeats-tier.SeatsSold)
	}
	if _, dup := m.hashes[c.TicketHash]; dup {
		return nil, fmt.Errorf("%w: %s", status.ErrIdentifierCollision, c.TicketHash)
	}

	tier.SeatsSold += c.Qty
	tier.LastPrice = c.PerTicket

	booking := &models.Booking{
		ID:         m.id("bkg"),
		UserID:     c.CustomerID,
		EventID:    c.EventID,
		TierID:     c.TierID,
		Qty:        c.Qty,
		PricePaid:  c.PricePaid,
		TicketHash: c.TicketHash,
		CreatedAt:  c.CreatedAt,
	}
	m.bookings[booking.ID] = booking
	m.hashes[c.TicketHash] = booking.ID

	copied := *booking
	return &copied, nil
}

func (m *memoryStore) FindBookingByTicketHash(ctx context.Context, ticketHash string) (*BookingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.hashes[ticketHash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", status.ErrTicketNotFound, ticketHash)
	}
	return m.recordLocked(m.bookings[id]), nil
}

func (m *memoryStore) recordLocked(b *models.Booking) *BookingRecord {
	rec := &BookingRecord{Booking: *b}
	if c, ok := m.customers[b.UserID]; ok {
		rec.UserPhone = c.Phone
	}
	if ev, ok := m.events[b.EventID]; ok {
		rec.EventTitle = ev.Title
	}
	if tier, ok := m.tiers[b.TierID]; ok {
		rec.TierName = tier.Name
	}
	return rec
}

func (m *memoryStore) MarkVerified(ctx context.Context, bookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return fmt.Errorf("%w: %s", status.ErrTicketNotFound, bookingID)
	}
	b.Verified = true
	return nil
}

func (m *memoryStore) MarkLedgerSynced(ctx context.Context, bookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return fmt.Errorf("%w: %s", status.ErrTicketNotFound, bookingID)
	}
	b.LedgerSynced = true
	return nil
}

func (m *memoryStore) UnsyncedBookings(ctx context.Context, limit int) ([]BookingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []BookingRecord
	for _, b := range m.bookings {
		if !b.LedgerSynced {
			out = append(out, *m.recordLocked(b))
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memoryStore) booking(id string) *models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil
	}
	copied := *b
	return &copied
}

func (m *memoryStore) tier(id string) *models.Tier {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *m.tiers[id]
	return &copied
}
