package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr     string
	RedisAddr    string
	KafkaBrokers []string // empty disables event publishing
	ServiceName  string

	SweepInterval   time.Duration
	SweepBatchSize  int
	CartHoldTTL     time.Duration
	CheckoutHoldTTL time.Duration

	FallbackActor string
}

func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":3000"),
		RedisAddr:       getenv("REDIS_ADDR", ""),
		KafkaBrokers:    splitCSV(getenv("KAFKA_BROKERS", "")),
		ServiceName:     getenv("SERVICE_NAME", "stock-ledger-api"),
		SweepInterval:   getDuration("SWEEP_INTERVAL", 5*time.Minute),
		SweepBatchSize:  getInt("SWEEP_BATCH_SIZE", 500),
		CartHoldTTL:     getDuration("CART_HOLD_TTL", 30*time.Minute),
		CheckoutHoldTTL: getDuration("CHECKOUT_HOLD_TTL", 60*time.Minute),
		FallbackActor:   getenv("FALLBACK_ACTOR", "system"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
