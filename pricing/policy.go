package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"event-ticketing/internal/status"
)

// SurgeCap bounds how far above the tier's base price the predictor may
// push the per-ticket price.
const SurgeCap = 1.5

// minHoursToEvent keeps the urgency signal strictly positive and bounded
// even for events that already started.
const minHoursToEvent = 0.1

// Quote is the bounded price for one booking request.
type Quote struct {
	PerTicket float64
	Total     float64
	// Raw is the unbounded predictor output, kept for observability.
	Raw float64
	// Clamped reports whether the predictor output fell outside
	// [base, base*SurgeCap] and was pulled back in.
	Clamped bool
}

// Policy computes a bounded per-ticket price from demand signals. It is a
// pure function of its inputs and the injected predictor's output; it never
// mutates anything.
type Policy struct {
	predictor Predictor
}

func NewPolicy(predictor Predictor) *Policy {
	return &Policy{predictor: predictor}
}

// HoursToEvent is the urgency signal: hours until start, floored so past-due
// events never produce a zero or negative horizon.
func HoursToEvent(startTime, now time.Time) float64 {
	return math.Max(startTime.Sub(now).Hours(), minHoursToEvent)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ComputePrice asks the predictor for a raw per-ticket price and clamps it
// to [basePrice, basePrice*SurgeCap]. basePrice must be the tier's original
// list price, never the rolling last-charged price. Predictor failures
// propagate as ErrPricingUnavailable; they are never priced at zero.
func (p *Policy) ComputePrice(ctx context.Context, eventSeatsSold int, eventStart time.Time, basePrice float64, qty int) (Quote, error) {
	if !isFinite(basePrice) {
		return Quote{}, fmt.Errorf("%w: base price %v is not a finite number", status.ErrInvalidInput, basePrice)
	}

	projectedDemand := eventSeatsSold + qty
	hoursToEvent := HoursToEvent(eventStart, time.Now().UTC())

	raw, err := p.predictor.Predict(ctx, projectedDemand, hoursToEvent, basePrice)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %v", status.ErrPricingUnavailable, err)
	}
	// The predictor is untrusted; NaN and infinities would blow up the
	// decimal conversion below.
	if !isFinite(raw) {
		return Quote{}, fmt.Errorf("%w: predictor returned non-finite price %v", status.ErrPricingUnavailable, raw)
	}

	base := decimal.NewFromFloat(basePrice)
	// Cent-exact bounds: the floor rounds up and the ceiling rounds down so
	// the rounded per-ticket price can never land a fraction of a cent
	// outside [base, base*SurgeCap].
	floor := base.RoundUp(2)
	ceiling := base.Mul(decimal.NewFromFloat(SurgeCap)).RoundDown(2)

	perTicket := decimal.NewFromFloat(raw).Round(2)
	clamped := false
	if perTicket.GreaterThan(ceiling) {
		perTicket = ceiling
		clamped = true
	}
	// Floor last: the never-below-base invariant wins over the ceiling.
	if perTicket.LessThan(floor) {
		perTicket = floor
		clamped = true
	}

	total := perTicket.Mul(decimal.NewFromInt(int64(qty))).Round(2)

	return Quote{
		PerTicket: perTicket.InexactFloat64(),
		Total:     total.InexactFloat64(),
		Raw:       raw,
		Clamped:   clamped,
	}, nil
}
