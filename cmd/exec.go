package cmd

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go"

	"event-ticketing/config"
	"event-ticketing/handlers"
	"event-ticketing/ledger"
	_ "event-ticketing/migrations"
	"event-ticketing/monitoring"
	"event-ticketing/pricing"
	"event-ticketing/security"
	"event-ticketing/services"
	"event-ticketing/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub (optional: bookings work without realtime push)
	var notifier *services.Notifier
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey

		notifier = services.NewNotifier(pubnub.NewPubNub(pnConfig))
	}

	// Initialize the per-event issuance ledger
	eventLedger, err := ledger.New(cfg.LedgerDir)
	if err != nil {
		return err
	}

	// Initialize the price predictor; fall back to the local heuristic
	// when no model service is configured
	var predictor pricing.Predictor = pricing.HeuristicPredictor{}
	if cfg.PredictorURL != "" {
		predictor = pricing.NewHTTPPredictor(cfg.PredictorURL, cfg.PredictorTimeout)
	}
	policy := pricing.NewPolicy(predictor)

	// Initialize services
	store := services.NewPBStore(app)
	bookingService := services.NewBookingService(store, eventLedger, policy, notifier, services.BookingOptions{
		MintRetries:        cfg.MintRetries,
		LedgerRetries:      cfg.LedgerRetries,
		LedgerRetryBackoff: cfg.LedgerRetryBackoff,
	})
	verifyService := services.NewVerifyService(store, eventLedger, redisClient, cfg.VerifyCacheTTL)
	customerService := services.NewCustomerService(store)
	limiter := security.NewRateLimiter(redisClient, cfg.BookingRateLimit)

	// Initialize handlers
	eventHandler := handlers.NewEventHandler(app)
	bookingHandler := handlers.NewBookingHandler(app, bookingService, verifyService, limiter)
	sponsorHandler := handlers.NewSponsorHandler(app)
	customerHandler := handlers.NewCustomerHandler(app, customerService)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	go handleShutdown(cancel)

	if cfg.EnableMetrics {
		go monitoring.Serve(cfg.MetricsPort)
	}

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Replay bookings that committed without a chain append, then keep
		// reconciling in the background
		if err := bookingService.ReconcileLedger(ctx); err != nil {
			log.Printf("startup ledger reconciliation: %v", err)
		}
		go bookingService.RunReconciler(ctx, cfg.ReconcileInterval)

		// Event endpoints
		e.Router.POST("/api/events", eventHandler.CreateEvent)
		e.Router.GET("/api/events", eventHandler.ListEvents)
		e.Router.DELETE("/api/events/{eventId}", eventHandler.DeleteEvent)
		e.Router.GET("/api/events/{eventId}/bookings", eventHandler.GetEventBookings)

		// Price & booking endpoints
		e.Router.POST("/api/events/price", bookingHandler.GetPrice)
		e.Router.POST("/api/book", bookingHandler.BookTicket)

		// Verification & audit endpoints
		e.Router.GET("/api/verify/{ticketHash}", bookingHandler.VerifyTicket)
		e.Router.GET("/api/events/{eventId}/ledger", bookingHandler.GetLedger)
		e.Router.GET("/api/events/{eventId}/ledger/verify", bookingHandler.AuditLedger)

		// Sponsor & rating endpoints
		e.Router.POST("/api/sponsors", sponsorHandler.CreateSponsor)
		e.Router.GET("/api/sponsors", sponsorHandler.ListSponsors)
		e.Router.POST("/api/events/{eventId}/ratings", sponsorHandler.CreateRating)

		// Customer endpoints
		e.Router.POST("/api/customers/register", customerHandler.Register)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	return app.Start()
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
