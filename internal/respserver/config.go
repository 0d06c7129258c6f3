package respserver

import (
	"crypto/tls"
	"time"
)

// Config holds the listener and per-connection configuration.
type Config struct {
	// Address is the plaintext listen address.
	Address string
	// TLSEnabled starts a second listener speaking RESP over TLS.
	TLSEnabled bool
	// TLSAddress is the TLS listener's address.
	TLSAddress string
	// TLSConfig is required when TLSEnabled is true.
	TLSConfig *tls.Config
	// ReadTimeout bounds how long a command read may take once the
	// first byte of it has arrived (slowloris protection).
	ReadTimeout time.Duration
	// WriteTimeout bounds how long writing a reply may take.
	WriteTimeout time.Duration
	// IdleTimeout bounds how long a connection may sit between
	// commands before it is closed.
	IdleTimeout time.Duration
	// RateLimit is the maximum commands per second accepted from a
	// single IP. 0 disables rate limiting.
	RateLimit float64
	// RateLimitBurst is the token bucket burst size per IP.
	RateLimitBurst int
}

// DefaultConfig returns the server's default configuration.
func DefaultConfig() Config {
	return Config{
		Address:        "127.0.0.1:6379",
		TLSEnabled:     false,
		TLSAddress:     "127.0.0.1:6380",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    5 * time.Minute,
		RateLimit:      1000,
		RateLimitBurst: 100,
	}
}
