package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"event-ticketing/internal/status"
	"event-ticketing/ledger"
	"event-ticketing/models"
)

const verifiedStatus = "Ticket Verified Successfully"

// VerifyService resolves ticket identifiers. The authoritative O(1) path is
// the bookings collection (unique ticket_hash index) with a Redis
// read-through cache in front; the linear chain scan is reserved for the
// explicit audit path.
type VerifyService struct {
	store    Store
	ledger   *ledger.Ledger
	redis    *redis.Client
	cacheTTL time.Duration
}

func NewVerifyService(store Store, lg *ledger.Ledger, redisClient *redis.Client, cacheTTL time.Duration) *VerifyService {
	return &VerifyService{
		store:    store,
		ledger:   lg,
		redis:    redisClient,
		cacheTTL: cacheTTL,
	}
}

func verifyCacheKey(ticketHash string) string {
	return fmt.Sprintf("verify:%s", ticketHash)
}

// VerifyTicket returns the verified summary for a ticket hash, or
// ErrTicketNotFound. The first successful verification flips the booking's
// verified flag.
func (s *VerifyService) VerifyTicket(ctx context.Context, ticketHash string) (*models.VerifiedTicket, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, verifyCacheKey(ticketHash)).Result()
		if err == nil {
			var ticket models.VerifiedTicket
			if err := json.Unmarshal([]byte(cached), &ticket); err == nil {
				return &ticket, nil
			}
		}
	}

	booking, err := s.store.FindBookingByTicketHash(ctx, ticketHash)
	if err != nil {
		return nil, err
	}

	if !booking.Verified {
		if err := s.store.MarkVerified(ctx, booking.ID); err != nil {
			log.Printf("mark booking %s verified: %v", booking.ID, err)
		}
	}

	ticket := &models.VerifiedTicket{
		Status:     verifiedStatus,
		EventTitle: booking.EventTitle,
		UserPhone:  booking.UserPhone,
		Qty:        booking.Qty,
		TicketHash: booking.TicketHash,
	}

	if s.redis != nil {
		if data, err := json.Marshal(ticket); err == nil {
			s.redis.Set(ctx, verifyCacheKey(ticketHash), data, s.cacheTTL)
		}
	}

	return ticket, nil
}

// AuditTicket re-proves a ticket against the event's chain instead of the
// booking store. Slower than VerifyTicket; meant for integrity disputes.
func (s *VerifyService) AuditTicket(ctx context.Context, eventID, ticketHash string) (map[string]any, error) {
	payload, found, err := s.ledger.Find(eventID, func(data map[string]any) bool {
		return data["ticket_hash"] == ticketHash
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", status.ErrTicketNotFound, ticketHash)
	}
	return payload, nil
}

// AuditChain re-verifies the whole chain for an event and reports its
// length together with the number of bookings still awaiting their append.
func (s *VerifyService) AuditChain(ctx context.Context, eventID string) (length int, unsynced int, err error) {
	chain, err := s.ledger.Open(eventID)
	if err != nil {
		return 0, 0, err
	}
	if err := chain.Verify(); err != nil {
		return chain.Length(), 0, err
	}

	pending, err := s.store.UnsyncedBookings(ctx, 0)
	if err != nil {
		return chain.Length(), 0, err
	}

	count := 0
	for _, b := range pending {
		if b.EventID == eventID {
			count++
		}
	}

	return chain.Length(), count, nil
}
