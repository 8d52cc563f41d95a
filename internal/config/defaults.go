package config

import "time"

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "dispatch_db",
}

var defaultRedis = Redis{
	Addr: "127.0.0.1:6379",
}

var defaultKafka = Kafka{
	Brokers: nil,
	Topic:   "courier.location",
	GroupID: "dispatch-location-ingest",
}

var defaultDispatch = Dispatch{
	SweepInterval: 30 * time.Second,
	OfferTTL:      15 * time.Minute,
}

var defaultAuth = Auth{
	JWTSecret: "dev-secret",
}

var defaultPayment = Payment{
	BaseURL:     "http://127.0.0.1:9090",
	Timeout:     5 * time.Second,
	MaxAttempts: 4,
	BaseDelay:   150 * time.Millisecond,
	MaxDelay:    2 * time.Second,
}

var defaultPprof = Pprof{
	Enabled: false,
	Addr:    "127.0.0.1:6060",
}

var defaultRateLimit = RateLimit{
	Enabled:    false,
	Rate:       20,
	Burst:      40,
	TTL:        10 * time.Minute,
	MaxBuckets: 100_000,
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultRedis returns the default Redis settings.
func DefaultRedis() Redis {
	return defaultRedis
}

// DefaultKafka returns the default Kafka settings.
func DefaultKafka() Kafka {
	return defaultKafka
}

// DefaultDispatch returns the default dispatcher settings.
func DefaultDispatch() Dispatch {
	return defaultDispatch
}

// DefaultAuth returns the default auth settings.
func DefaultAuth() Auth {
	return defaultAuth
}

// DefaultPayment returns the default payment gateway settings.
func DefaultPayment() Payment {
	return defaultPayment
}

// DefaultRateLimit returns the default HTTP rate limiter settings.
func DefaultRateLimit() RateLimit {
	return defaultRateLimit
}

// DefaultPprof returns the default debug profiling server settings.
func DefaultPprof() Pprof {
	return defaultPprof
}
