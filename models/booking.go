package models

import "time"

type BookingRequest struct {
	UserPhone string `json:"user_phone"`
	EventID   string `json:"event_id"`
	TierID    string `json:"tier_id"`
	Qty       int    `json:"qty"`
}

type BookingResponse struct {
	ID         string  `json:"id"`
	UserPhone  string  `json:"user_phone"`
	EventID    string  `json:"event_id"`
	TierID     string  `json:"tier_id"`
	Qty        int     `json:"qty"`
	PricePaid  float64 `json:"price_paid"`
	TicketHash string  `json:"ticket_hash"`
}

// BookingDetail is the per-event booking summary used by the audit list.
type BookingDetail struct {
	TicketHash string `json:"ticket_hash"`
	Qty        int    `json:"qty"`
	UserPhone  string `json:"user_phone"`
	TierName   string `json:"tier_name"`
}

type Booking struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	EventID      string    `json:"event_id"`
	TierID       string    `json:"tier_id"`
	Qty          int       `json:"qty"`
	PricePaid    float64   `json:"price_paid"`
	TicketHash   string    `json:"ticket_hash"`
	CreatedAt    time.Time `json:"created_at"`
	Verified     bool      `json:"verified"`
	LedgerSynced bool      `json:"ledger_synced"`
}

type PriceRequest struct {
	TierID string `json:"tier_id"`
	Qty    int    `json:"qty"`
}

type PriceResponse struct {
	DynamicPrice float64 `json:"dynamic_price"`
	BasePrice    float64 `json:"base_price"`
	Quantity     int     `json:"quantity"`
}

type VerifiedTicket struct {
	Status     string `json:"status"`
	EventTitle string `json:"event_title"`
	UserPhone  string `json:"user_phone"`
	Qty        int    `json:"qty"`
	TicketHash string `json:"ticket_hash"`
}
