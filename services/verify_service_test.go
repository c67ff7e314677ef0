package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-ticketing/internal/status"
	"event-ticketing/models"
)

func seedBooking(t *testing.T, store *memoryStore) *models.Booking {
	t.Helper()
	event := store.addEvent("Jazz Night", time.Now().Add(72*time.Hour))
	tier := store.addTier(event.ID, "VIP", 50, 100, 0)
	customer, err := store.GetOrCreateCustomerByPhone(context.Background(), "5551234567")
	require.NoError(t, err)

	booking, err := store.Commit(context.Background(), CommitBooking{
		CustomerID: customer.ID,
		EventID:    event.ID,
		TierID:     tier.ID,
		Qty:        2,
		PricePaid:  120,
		PerTicket:  60,
		TicketHash: "a1b2c3d4e5f6",
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	return booking
}

func TestVerifyTicket_CacheMiss(t *testing.T) {
	store := newMemoryStore()
	booking := seedBooking(t, store)
	lg, _ := newTestLedger(t)

	db, mock := redismock.NewClientMock()
	svc := NewVerifyService(store, lg, db, 5*time.Minute)

	expected := &models.VerifiedTicket{
		Status:     "Ticket Verified Successfully",
		EventTitle: "Jazz Night",
		UserPhone:  "5551234567",
		Qty:        2,
		TicketHash: booking.TicketHash,
	}
	data, err := json.Marshal(expected)
	require.NoError(t, err)

	mock.ExpectGet(verifyCacheKey(booking.TicketHash)).RedisNil()
	mock.ExpectSet(verifyCacheKey(booking.TicketHash), data, 5*time.Minute).SetVal("OK")

	ticket, err := svc.VerifyTicket(context.Background(), booking.TicketHash)
	require.NoError(t, err)
	assert.Equal(t, expected, ticket)

	// First verification flips the flag.
	assert.True(t, store.booking(booking.ID).Verified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyTicket_CacheHit(t *testing.T) {
	// An empty store proves the cache answered without a lookup.
	store := newMemoryStore()
	lg, _ := newTestLedger(t)

	cached := &models.VerifiedTicket{
		Status:     "Ticket Verified Successfully",
		EventTitle: "Jazz Night",
		UserPhone:  "5551234567",
		Qty:        2,
		TicketHash: "a1b2c3d4e5f6",
	}
	data, err := json.Marshal(cached)
	require.NoError(t, err)

	db, mock := redismock.NewClientMock()
	mock.ExpectGet(verifyCacheKey("a1b2c3d4e5f6")).SetVal(string(data))

	svc := NewVerifyService(store, lg, db, 5*time.Minute)

	ticket, err := svc.VerifyTicket(context.Background(), "a1b2c3d4e5f6")
	require.NoError(t, err)
	assert.Equal(t, cached, ticket)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyTicket_NotFound(t *testing.T) {
	store := newMemoryStore()
	lg, _ := newTestLedger(t)

	db, mock := redismock.NewClientMock()
	mock.ExpectGet(verifyCacheKey("unknown")).RedisNil()

	svc := NewVerifyService(store, lg, db, 5*time.Minute)

	_, err := svc.VerifyTicket(context.Background(), "unknown")
	assert.ErrorIs(t, err, status.ErrTicketNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyTicket_WorksWithoutRedis(t *testing.T) {
	store := newMemoryStore()
	booking := seedBooking(t, store)
	lg, _ := newTestLedger(t)

	svc := NewVerifyService(store, lg, nil, 5*time.Minute)

	ticket, err := svc.VerifyTicket(context.Background(), booking.TicketHash)
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night", ticket.EventTitle)
	assert.True(t, store.booking(booking.ID).Verified)
}

func TestAuditTicket_FindsIssuanceBlock(t *testing.T) {
	store := newMemoryStore()
	lg, _ := newTestLedger(t)
	svc := NewVerifyService(store, lg, nil, 5*time.Minute)

	_, err := lg.Append("evt1", map[string]any{
		"ticket_hash": "a1b2c3d4e5f6",
		"user_phone":  "5551234567",
		"event_id":    "evt1",
		"tier":        "VIP",
	})
	require.NoError(t, err)

	payload, err := svc.AuditTicket(context.Background(), "evt1", "a1b2c3d4e5f6")
	require.NoError(t, err)
	assert.Equal(t, "5551234567", payload["user_phone"])

	_, err = svc.AuditTicket(context.Background(), "evt1", "missing")
	assert.ErrorIs(t, err, status.ErrTicketNotFound)
}

func TestAuditChain_ReportsLengthAndUnsynced(t *testing.T) {
	store := newMemoryStore()
	booking := seedBooking(t, store)
	lg, _ := newTestLedger(t)
	svc := NewVerifyService(store, lg, nil, 5*time.Minute)

	_, err := lg.Append(booking.EventID, map[string]any{"ticket_hash": "other"})
	require.NoError(t, err)

	// The seeded booking never got its append, so it counts as unsynced.
	length, unsynced, err := svc.AuditChain(context.Background(), booking.EventID)
	require.NoError(t, err)
	assert.Equal(t, 2, length)
	assert.Equal(t, 1, unsynced)

	require.NoError(t, store.MarkLedgerSynced(context.Background(), booking.ID))

	length, unsynced, err = svc.AuditChain(context.Background(), booking.EventID)
	require.NoError(t, err)
	assert.Equal(t, 2, length)
	assert.Equal(t, 0, unsynced)
}
