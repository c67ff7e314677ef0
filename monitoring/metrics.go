package monitoring

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	bookingsCommitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_committed_total",
			Help: "Committed bookings per event and tier",
		},
		[]string{"event_id", "tier"},
	)

	bookingRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_rejections_total",
			Help: "Rejected booking requests by reason",
		},
		[]string{"reason"},
	)

	priceClamps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_clamps_total",
			Help: "Predictor outputs pulled back into the price envelope",
		},
		[]string{"event_id"},
	)

	ledgerAppendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_append_duration_seconds",
			Help:    "Duration of chain appends including persistence",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"event_id"},
	)

	chainLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_chain_length",
			Help: "Block count per event chain, genesis included",
		},
		[]string{"event_id"},
	)
)

func TrackBooking(eventID, tier string) {
	bookingsCommitted.WithLabelValues(eventID, tier).Inc()
}

func TrackRejection(reason string) {
	bookingRejections.WithLabelValues(reason).Inc()
}

func TrackPriceClamp(eventID string) {
	priceClamps.WithLabelValues(eventID).Inc()
}

func TrackLedgerAppend(eventID string, duration time.Duration) {
	ledgerAppendDuration.WithLabelValues(eventID).Observe(duration.Seconds())
}

func SetChainLength(eventID string, length int) {
	chainLength.WithLabelValues(eventID).Set(float64(length))
}

// Serve exposes /metrics on its own port.
func Serve(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Printf("Metrics listening on :%s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Printf("metrics server: %v", err)
	}
}
