package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Ledger configuration
	LedgerDir          string
	LedgerRetries      int
	LedgerRetryBackoff time.Duration
	ReconcileInterval  time.Duration

	// Pricing configuration
	PredictorURL     string
	PredictorTimeout time.Duration

	// Booking configuration
	MintRetries       int
	BookingRateLimit  int
	VerifyCacheTTL    time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Ledger
		LedgerDir:          getEnv("LEDGER_DIR", "ledgers"),
		LedgerRetries:      getEnvAsInt("LEDGER_RETRIES", 3),
		LedgerRetryBackoff: getEnvAsDuration("LEDGER_RETRY_BACKOFF", "100ms"),
		ReconcileInterval:  getEnvAsDuration("RECONCILE_INTERVAL", "1m"),

		// Pricing
		PredictorURL:     getEnv("PREDICTOR_URL", ""),
		PredictorTimeout: getEnvAsDuration("PREDICTOR_TIMEOUT", "3s"),

		// Booking
		MintRetries:      getEnvAsInt("MINT_RETRIES", 3),
		BookingRateLimit: getEnvAsInt("BOOKING_RATE_LIMIT", 30),
		VerifyCacheTTL:   getEnvAsDuration("VERIFY_CACHE_TTL", "5m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, fall back to the default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
