package api

import "time"

// Config holds server configuration.
type Config struct {
	Port              int
	RateLimitRequests int // per minute per client IP, 0 disables
	RateLimitBurst    int
	CacheTTL          time.Duration
	CacheSize         int
	AllowedOrigins    []string // empty allows all origins

	// Top is the number of ranked passages returned when a request does not
	// ask for a specific count.
	Top int

	// Concurrency is the number of goroutines applying filters, see
	// rank.Pipeline.WithConcurrency.
	Concurrency int
}
