package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"event-ticketing/internal/status"
	"event-ticketing/ledger"
	"event-ticketing/models"
	"event-ticketing/monitoring"
	"event-ticketing/pricing"
	"event-ticketing/utils"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// BookingService runs the booking transaction end-to-end: validate the
// request, check tier capacity, price the tickets, mint a unique ticket
// hash, commit the sale and append the issuance to the event's chain.
type BookingService struct {
	store    Store
	ledger   *ledger.Ledger
	policy   *pricing.Policy
	notifier *Notifier

	mintRetries        int
	ledgerRetries      int
	ledgerRetryBackoff time.Duration

	// One mutex per tier serializes the read-check-mutate window so the
	// capacity invariant holds under concurrent requests. Tiers of
	// different events never share a lock.
	tierLocks sync.Map
}

type BookingOptions struct {
	MintRetries        int
	LedgerRetries      int
	LedgerRetryBackoff time.Duration
}

func NewBookingService(store Store, lg *ledger.Ledger, policy *pricing.Policy, notifier *Notifier, opts BookingOptions) *BookingService {
	if opts.MintRetries <= 0 {
		opts.MintRetries = 3
	}
	if opts.LedgerRetries <= 0 {
		opts.LedgerRetries = 3
	}
	if opts.LedgerRetryBackoff <= 0 {
		opts.LedgerRetryBackoff = 100 * time.Millisecond
	}

	return &BookingService{
		store:              store,
		ledger:             lg,
		policy:             policy,
		notifier:           notifier,
		mintRetries:        opts.MintRetries,
		ledgerRetries:      opts.LedgerRetries,
		ledgerRetryBackoff: opts.LedgerRetryBackoff,
	}
}

func (s *BookingService) tierLock(tierID string) *sync.Mutex {
	lock, _ := s.tierLocks.LoadOrStore(tierID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// BookTicket executes one booking. Rejections before commit leave no state
// behind. A commit followed by a failed chain append returns the committed
// booking together with ErrLedgerWriteFailure; the reconciler replays the
// missing append later.
func (s *BookingService) BookTicket(ctx context.Context, req models.BookingRequest) (*models.BookingResponse, error) {
	if !phonePattern.MatchString(req.UserPhone) {
		monitoring.TrackRejection("invalid_input")
		return nil, fmt.Errorf("%w: user_phone must be a 10-digit number", status.ErrInvalidInput)
	}
	if req.Qty < 1 {
		monitoring.TrackRejection("invalid_input")
		return nil, fmt.Errorf("%w: qty must be at least 1", status.ErrInvalidInput)
	}

	customer, err := s.store.GetOrCreateCustomerByPhone(ctx, req.UserPhone)
	if err != nil {
		return nil, err
	}

	lock := s.tierLock(req.TierID)
	lock.Lock()
	defer lock.Unlock()

	tier, err := s.store.GetTier(ctx, req.TierID)
	if err != nil {
		monitoring.TrackRejection("tier_not_found")
		return nil, err
	}
	if req.EventID != "" && tier.EventID != req.EventID {
		monitoring.TrackRejection("tier_not_found")
		return nil, fmt.Errorf("%w: tier %s does not belong to event %s", status.ErrTierNotFound, req.TierID, req.EventID)
	}

	event, err := s.store.GetEvent(ctx, tier.EventID)
	if err != nil {
		monitoring.TrackRejection("event_not_found")
		return nil, err
	}

	if tier.SeatsSold+req.Qty > tier.TotalSeats {
		monitoring.TrackRejection("insufficient_inventory")
		return nil, fmt.Errorf("%w: %d requested, %d left", status.ErrInsufficientInventory, req.Qty, tier.SeatsLeft())
	}

	quote, err := s.quote(ctx, event, tier, req.Qty)
	if err != nil {
		monitoring.TrackRejection("pricing_unavailable")
		return nil, err
	}

	booking, err := s.mintAndCommit(ctx, customer, event, tier, req.Qty, quote)
	if err != nil {
		return nil, err
	}

	monitoring.TrackBooking(event.ID, tier.Name)
	resp := &models.BookingResponse{
		ID:         booking.ID,
		UserPhone:  customer.Phone,
		EventID:    booking.EventID,
		TierID:     booking.TierID,
		Qty:        booking.Qty,
		PricePaid:  booking.PricePaid,
		TicketHash: booking.TicketHash,
	}

	if err := s.appendIssuance(ctx, booking, customer.Phone, tier.Name); err != nil {
		// The sale is committed; only the audit trail is behind. Surface
		// the gap instead of reporting a clean success.
		slog.Error("booking committed but ledger append failed",
			"booking_id", booking.ID, "event_id", booking.EventID, "error", err)
		return resp, err
	}

	if s.notifier != nil {
		go s.notifier.TicketIssued(booking.EventID, resp)
	}

	return resp, nil
}

// GetDynamicPrice prices a prospective booking without committing anything.
func (s *BookingService) GetDynamicPrice(ctx context.Context, req models.PriceRequest) (*models.PriceResponse, error) {
	if req.Qty < 1 {
		return nil, fmt.Errorf("%w: qty must be at least 1", status.ErrInvalidInput)
	}

	tier, err := s.store.GetTier(ctx, req.TierID)
	if err != nil {
		return nil, err
	}
	event, err := s.store.GetEvent(ctx, tier.EventID)
	if err != nil {
		return nil, err
	}

	quote, err := s.quote(ctx, event, tier, req.Qty)
	if err != nil {
		return nil, err
	}

	return &models.PriceResponse{
		DynamicPrice: quote.Total,
		BasePrice:    tier.BasePrice * float64(req.Qty),
		Quantity:     req.Qty,
	}, nil
}

func (s *BookingService) quote(ctx context.Context, event *models.Event, tier *models.Tier, qty int) (pricing.Quote, error) {
	sold, err := s.store.EventSeatsSold(ctx, event.ID)
	if err != nil {
		return pricing.Quote{}, err
	}

	quote, err := s.policy.ComputePrice(ctx, sold, event.StartTime, tier.BasePrice, qty)
	if err != nil {
		return pricing.Quote{}, err
	}
	if quote.Clamped {
		monitoring.TrackPriceClamp(event.ID)
	}
	return quote, nil
}

// mintAndCommit mints a ticket hash and commits the sale, retrying with a
// fresh nonce for the small window where two mints collide.
func (s *BookingService) mintAndCommit(ctx context.Context, customer *models.Customer, event *models.Event, tier *models.Tier, qty int, quote pricing.Quote) (*models.Booking, error) {
	for attempt := 0; attempt < s.mintRetries; attempt++ {
		timestamp := time.Now().UTC().Format(time.RFC3339Nano)
		ticketHash, err := utils.GenerateTicketHash(customer.Phone, event.ID, timestamp, "")
		if err != nil {
			return nil, fmt.Errorf("mint ticket hash: %w", err)
		}

		exists, err := s.store.TicketHashExists(ctx, ticketHash)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		booking, err := s.store.Commit(ctx, CommitBooking{
			CustomerID: customer.ID,
			EventID:    event.ID,
			TierID:     tier.ID,
			Qty:        qty,
			PricePaid:  quote.Total,
			PerTicket:  quote.PerTicket,
			TicketHash: ticketHash,
			CreatedAt:  time.Now().UTC(),
		})
		if err == nil {
			return booking, nil
		}
		// The unique index is the authority; a collision there just means
		// another writer won the hash, so mint again.
		if errors.Is(err, status.ErrIdentifierCollision) {
			continue
		}
		return nil, err
	}

	monitoring.TrackRejection("identifier_collision")
	return nil, status.ErrIdentifierCollision
}

// appendIssuance writes the issuance block with bounded retry and flips the
// booking's ledger_synced flag once the block is durable. The append is
// keyed by ticket hash, so a reconciler pass racing with this call still
// yields exactly one block per booking.
func (s *BookingService) appendIssuance(ctx context.Context, booking *models.Booking, userPhone, tierName string) error {
	payload := issuancePayload(booking, userPhone, tierName)

	var lastErr error
	for attempt := 0; attempt < s.ledgerRetries; attempt++ {
		start := time.Now()
		_, _, err := s.ledger.AppendIfAbsent(booking.EventID, hasTicketHash(booking.TicketHash), payload)
		if err == nil {
			monitoring.TrackLedgerAppend(booking.EventID, time.Since(start))
			if err := s.store.MarkLedgerSynced(ctx, booking.ID); err != nil {
				log.Printf("mark booking %s ledger_synced: %v", booking.ID, err)
			}
			return nil
		}
		lastErr = err
		time.Sleep(s.ledgerRetryBackoff * time.Duration(attempt+1))
	}

	return fmt.Errorf("%w: %v", status.ErrLedgerWriteFailure, lastErr)
}

func issuancePayload(booking *models.Booking, userPhone, tierName string) map[string]any {
	return map[string]any{
		"ticket_hash": booking.TicketHash,
		"user_phone":  userPhone,
		"event_id":    booking.EventID,
		"tier":        tierName,
	}
}

func hasTicketHash(ticketHash string) func(map[string]any) bool {
	return func(data map[string]any) bool {
		return data["ticket_hash"] == ticketHash
	}
}

// OpenChain returns a snapshot of the event's chain for audit listings.
func (s *BookingService) OpenChain(eventID string) (*ledger.Chain, error) {
	chain, err := s.ledger.Open(eventID)
	if err != nil {
		return nil, err
	}
	monitoring.SetChainLength(eventID, chain.Length())
	return chain, nil
}

// ReconcileLedger replays bookings that committed without a chain append.
// It runs at startup and on a timer, so a crash between commit and append
// heals on the next pass.
func (s *BookingService) ReconcileLedger(ctx context.Context) error {
	pending, err := s.store.UnsyncedBookings(ctx, 100)
	if err != nil {
		return err
	}

	for _, b := range pending {
		// The absence check and append hold the per-event lock together, so
		// an in-flight booking append can never race this into a duplicate
		// issuance block.
		_, appended, err := s.ledger.AppendIfAbsent(b.EventID, hasTicketHash(b.TicketHash), issuancePayload(&b.Booking, b.UserPhone, b.TierName))
		if err != nil {
			return fmt.Errorf("replay booking %s: %w", b.ID, err)
		}
		if appended {
			slog.Info("replayed booking into ledger", "booking_id", b.ID, "event_id", b.EventID)
		}

		if err := s.store.MarkLedgerSynced(ctx, b.ID); err != nil {
			return err
		}
	}

	return nil
}

// RunReconciler drives ReconcileLedger until ctx is cancelled.
func (s *BookingService) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ReconcileLedger(ctx); err != nil {
				log.Printf("ledger reconciliation: %v", err)
			}
		}
	}
}
