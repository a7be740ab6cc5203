package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Server    Server
	Auth      Auth
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Rationing RationingConfig
	RateLimit RateLimitConfig
	LogLevel  string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	MetricsAddr     string
	ShutdownTimeout time.Duration
}

// Auth configures bearer token validation.
type Auth struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
}

// DatabaseConfig selects PostgreSQL when URL is set; otherwise the in-memory store is used.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	Migrate      bool
}

// RedisConfig enables the distributed locker when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LockTTL      time.Duration
}

// KafkaConfig streams audit events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers          []string
	AuditTopic       string
	AuditPartitions  int
	AuditReplication int
	AsyncBuffer      int
}

// RationingConfig tunes the purchase coordinator.
type RationingConfig struct {
	LockTimeout     time.Duration
	CommitTimeout   time.Duration
	ConflictRetries int
	RetryBackoff    time.Duration
	MaxClockSkew    time.Duration
}

// RateLimitConfig throttles each authenticated actor. A zero limit disables it.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var errs []string
	dur := func(key string, def time.Duration) time.Duration {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid duration %q", key, raw))
			return def
		}
		return d
	}
	num := func(key string, def int) int {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid integer %q", key, raw))
			return def
		}
		return n
	}

	cfg := Config{
		Server: Server{
			Addr:            envOr("PRS_ADDR", ":8080"),
			MetricsAddr:     envOr("PRS_METRICS_ADDR", ":9090"),
			ShutdownTimeout: dur("PRS_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Auth: Auth{
			// Use a default for development - should be overridden in production
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:        envOr("JWT_ISSUER", "prs-identity"),
			Audience:      envOr("JWT_AUDIENCE", "prs-engine"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: num("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: num("DATABASE_MAX_IDLE_CONNS", 5),
			Migrate:      os.Getenv("DATABASE_MIGRATE") == "true",
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     num("REDIS_POOL_SIZE", 10),
			MinIdleConns: num("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  dur("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  dur("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: dur("REDIS_WRITE_TIMEOUT", 3*time.Second),
			LockTTL:      dur("REDIS_LOCK_TTL", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:          splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:       envOr("KAFKA_AUDIT_TOPIC", "prs.audit"),
			AuditPartitions:  num("KAFKA_AUDIT_PARTITIONS", 0),
			AuditReplication: num("KAFKA_AUDIT_REPLICATION", 0),
			AsyncBuffer:      num("AUDIT_ASYNC_BUFFER", 1024),
		},
		Rationing: RationingConfig{
			LockTimeout:     dur("PRS_LOCK_TIMEOUT", 2*time.Second),
			CommitTimeout:   dur("PRS_COMMIT_TIMEOUT", 5*time.Second),
			ConflictRetries: num("PRS_CONFLICT_RETRIES", 3),
			RetryBackoff:    dur("PRS_RETRY_BACKOFF", 10*time.Millisecond),
			MaxClockSkew:    dur("PRS_MAX_CLOCK_SKEW", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: num("PRS_RATE_LIMIT", 120),
			Window:            dur("PRS_RATE_WINDOW", time.Minute),
		},
		LogLevel: envOr("LOG_LEVEL", "info"),
	}
	// a lock must outlive the wait for it plus the commit it guards
	if hold := cfg.Rationing.LockTimeout + cfg.Rationing.CommitTimeout; cfg.Redis.LockTTL <= hold {
		errs = append(errs, fmt.Sprintf("REDIS_LOCK_TTL: %s must exceed PRS_LOCK_TIMEOUT + PRS_COMMIT_TIMEOUT (%s)", cfg.Redis.LockTTL, hold))
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
