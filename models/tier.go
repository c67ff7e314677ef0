package models

// Tier is a priced seating category with finite capacity.
//
// BasePrice is the list price captured at tier creation and never changes;
// all price bounding math uses it. LastPrice is the per-ticket price charged
// by the most recent booking, kept for display only.
type Tier struct {
	ID         string  `json:"id"`
	EventID    string  `json:"event_id"`
	Name       string  `json:"name"`
	BasePrice  float64 `json:"base_price"`
	LastPrice  float64 `json:"last_price"`
	TotalSeats int     `json:"total_seats"`
	SeatsSold  int     `json:"seats_sold"`
}

func (t Tier) SeatsLeft() int {
	return t.TotalSeats - t.SeatsSold
}
