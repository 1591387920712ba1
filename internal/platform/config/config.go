package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// DatabaseURL selects the Postgres-backed stores when set; otherwise the
	// in-memory stores are used.
	DatabaseURL string

	Redis RedisConfig

	// KafkaBrokers enables the Kafka audit sink when non-empty.
	KafkaBrokers []string
	AuditTopic   string

	CacheTTL time.Duration

	Feed FeedConfig

	Enrich EnrichConfig

	// WSSendBuffer is the per-subscriber outgoing event buffer. Slow readers
	// beyond this depth lose events rather than stalling the hub.
	WSSendBuffer int
}

// RedisConfig captures Redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FeedConfig controls the simulated social feed emission window.
type FeedConfig struct {
	BurstSize int
	Stagger   time.Duration
	Cooldown  time.Duration
}

// EnrichConfig points at the external enrichment providers.
type EnrichConfig struct {
	ModelURL    string
	ModelAPIKey string
	GeocoderURL string
	UpdatesURL  string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        envString("BEACON_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaBrokers: envList("KAFKA_BROKERS"),
		AuditTopic:   envString("AUDIT_TOPIC", "beacon.audit"),
		CacheTTL:     envDuration("CACHE_TTL", time.Hour),
		Feed: FeedConfig{
			BurstSize: envInt("FEED_BURST_SIZE", 4),
			Stagger:   envDuration("FEED_STAGGER", 2*time.Second),
			Cooldown:  envDuration("FEED_COOLDOWN", 10*time.Second),
		},
		Enrich: EnrichConfig{
			ModelURL:    envString("MODEL_URL", "https://generativelanguage.googleapis.com"),
			ModelAPIKey: os.Getenv("MODEL_API_KEY"),
			GeocoderURL: envString("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
			UpdatesURL:  envString("UPDATES_URL", "https://reliefweb.int/updates"),
		},
		WSSendBuffer: envInt("WS_SEND_BUFFER", 256),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
