package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"event-ticketing/utils"
)

// Predictor estimates a raw per-ticket price from demand, urgency and base
// price signals. Implementations are untrusted: they may fail, and they may
// return values far outside any sane range. The policy clamps the output.
type Predictor interface {
	Predict(ctx context.Context, ticketsBooked int, hoursToEvent, basePrice float64) (float64, error)
}

// HTTPPredictor calls an external pricing model service. Calls run through a
// circuit breaker so a dead model service fails fast instead of stalling
// every booking.
type HTTPPredictor struct {
	url     string
	client  *http.Client
	breaker *utils.CircuitBreaker
}

func NewHTTPPredictor(url string, timeout time.Duration) *HTTPPredictor {
	return &HTTPPredictor{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		breaker: utils.NewCircuitBreaker("price-predictor"),
	}
}

type predictRequest struct {
	TicketsBooked int     `json:"tickets_booked"`
	HoursToEvent  float64 `json:"hours_to_event"`
	BasePrice     float64 `json:"base_price"`
}

type predictResponse struct {
	PredictedPrice float64 `json:"predicted_price"`
}

func (p *HTTPPredictor) Predict(ctx context.Context, ticketsBooked int, hoursToEvent, basePrice float64) (float64, error) {
	result, err := p.breaker.Execute(ctx, func() (any, error) {
		body, err := json.Marshal(predictRequest{
			TicketsBooked: ticketsBooked,
			HoursToEvent:  hoursToEvent,
			BasePrice:     basePrice,
		})
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("predictor returned status %d", resp.StatusCode)
		}

		var out predictResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, err
		}
		return out.PredictedPrice, nil
	})
	if err != nil {
		return 0, err
	}

	return result.(float64), nil
}

// HeuristicPredictor mirrors the shape the pricing model was trained on:
// demand pushes the price up by at most 40% of base, urgency decays
// exponentially over a 48 hour horizon and adds at most 10%. It serves
// deployments without a model service, and deterministic tests.
type HeuristicPredictor struct{}

func (HeuristicPredictor) Predict(_ context.Context, ticketsBooked int, hoursToEvent, basePrice float64) (float64, error) {
	demandFactor := math.Min(float64(ticketsBooked)/300.0, 1.0) * basePrice * 0.4
	timeUrgency := math.Exp(-hoursToEvent/48.0) * basePrice * 0.1

	return basePrice + demandFactor + timeUrgency, nil
}
