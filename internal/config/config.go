package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// DB stores PostgreSQL connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN builds a PostgreSQL connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Pass, d.Host, d.Port, d.Name)
}

// Redis stores Redis connection settings for the dispatch candidate index.
type Redis struct {
	Addr string
}

// Kafka stores consumer settings for the courier location topic.
type Kafka struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Dispatch stores dispatcher loop settings.
type Dispatch struct {
	// SweepInterval is how often the worker checks for expired searches.
	SweepInterval time.Duration
	// OfferTTL bounds how long a pushed offer stays valid.
	OfferTTL time.Duration
}

// Auth stores bearer-token settings.
type Auth struct {
	JWTSecret string
}

// Payment stores the external payment gateway client settings.
type Payment struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Pprof stores the debug profiling server settings.
type Pprof struct {
	Enabled bool
	Addr    string
	User    string
	Pass    string
}

// RateLimit stores per-client HTTP rate limiter settings.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Config stores service settings.
type Config struct {
	Port      int
	DB        DB
	Redis     Redis
	Kafka     Kafka
	Dispatch  Dispatch
	Auth      Auth
	Payment   Payment
	RateLimit RateLimit
	Pprof     Pprof
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:      DefaultPort(),
		DB:        DefaultDB(),
		Redis:     DefaultRedis(),
		Kafka:     DefaultKafka(),
		Dispatch:  DefaultDispatch(),
		Auth:      DefaultAuth(),
		Payment:   DefaultPayment(),
		RateLimit: DefaultRateLimit(),
		Pprof:     DefaultPprof(),
	}

	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	envString(&cfg.DB.Host, "POSTGRES_HOST")
	envString(&cfg.DB.Port, "POSTGRES_PORT")
	envString(&cfg.DB.User, "POSTGRES_USER")
	envString(&cfg.DB.Pass, "POSTGRES_PASSWORD")
	envString(&cfg.DB.Name, "POSTGRES_DB")
	envString(&cfg.Redis.Addr, "REDIS_ADDR")
	envString(&cfg.Kafka.Topic, "KAFKA_LOCATION_TOPIC")
	envString(&cfg.Kafka.GroupID, "KAFKA_GROUP_ID")
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitCSV(v)
	}
	envDuration(&cfg.Dispatch.SweepInterval, "DISPATCH_SWEEP_INTERVAL")
	envDuration(&cfg.Dispatch.OfferTTL, "DISPATCH_OFFER_TTL")
	envString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	envBool(&cfg.RateLimit.Enabled, "RATE_LIMIT_ENABLED")
	envFloat(&cfg.RateLimit.Rate, "RATE_LIMIT_RATE")
	envInt(&cfg.RateLimit.Burst, "RATE_LIMIT_BURST")
	envDuration(&cfg.RateLimit.TTL, "RATE_LIMIT_TTL")
	envInt(&cfg.RateLimit.MaxBuckets, "RATE_LIMIT_MAX_BUCKETS")
	envBool(&cfg.Pprof.Enabled, "PPROF_ENABLED")
	envString(&cfg.Pprof.Addr, "PPROF_ADDR")
	envString(&cfg.Pprof.User, "PPROF_USER")
	envString(&cfg.Pprof.Pass, "PPROF_PASS")
	envString(&cfg.Payment.BaseURL, "PAYMENT_GATEWAY_URL")
	envString(&cfg.Payment.APIKey, "PAYMENT_GATEWAY_KEY")
	envDuration(&cfg.Payment.Timeout, "PAYMENT_GATEWAY_TIMEOUT")

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	pflag.Parse()

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Dispatch.SweepInterval <= 0 {
		return nil, fmt.Errorf("invalid dispatch sweep interval: %s", cfg.Dispatch.SweepInterval)
	}
	return cfg, nil
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
