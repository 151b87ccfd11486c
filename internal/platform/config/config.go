// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full server configuration.
type Config struct {
	Server   Server
	Database Database
	Redis    Redis
	SML      SML
	Cache    Cache
	IDs      IDs
	Kafka    Kafka
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Database configures the PostgreSQL connection. An empty URL selects the
// in-memory stores.
type Database struct {
	URL string
}

// Redis configures the shared identifier cache. An empty URL selects the
// in-process cache.
type Redis struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SML configures the network directory integration. With Enabled false the
// server runs standalone and migration operations are rejected.
type SML struct {
	Enabled  bool
	Endpoint string
	SMPID    string
	Timeout  time.Duration
}

// Cache tunes the identifier cache.
type Cache struct {
	TTL time.Duration
}

// IDs tunes the surrogate ID allocator.
type IDs struct {
	Baseline  int64
	BlockSize int64
}

// Kafka configures the audit relay. Empty seeds disable it.
type Kafka struct {
	Seeds      []string
	AuditTopic string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("SMP_ADDR", ":8080"),
			JWTSigningKey: envOr("SMP_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Database: Database{
			URL: os.Getenv("SMP_DATABASE_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("SMP_REDIS_URL"),
			DialTimeout:  envDuration("SMP_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("SMP_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("SMP_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		SML: SML{
			Enabled:  os.Getenv("SMP_SML_ENABLED") == "true",
			Endpoint: os.Getenv("SMP_SML_ENDPOINT"),
			SMPID:    os.Getenv("SMP_SML_SMP_ID"),
			Timeout:  envDuration("SMP_SML_TIMEOUT", 30*time.Second),
		},
		Cache: Cache{
			TTL: envDuration("SMP_CACHE_TTL", 60*time.Second),
		},
		IDs: IDs{
			Baseline:  envInt64("SMP_ID_BASELINE", 0),
			BlockSize: envInt64("SMP_ID_BLOCK_SIZE", 20),
		},
		Kafka: Kafka{
			Seeds:      envList("SMP_KAFKA_SEEDS"),
			AuditTopic: envOr("SMP_KAFKA_AUDIT_TOPIC", "smp.audit"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
