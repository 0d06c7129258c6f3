// Package config defines the server's configuration surface and how
// it is assembled from defaults, a YAML file, and environment
// variables via the confloader package.
package config

import (
	"fmt"
	"time"

	"github.com/nilbyte/respd/internal/infra/confloader"
)

// Config is the top-level, fully resolved server configuration.
type Config struct {
	Server  ServerSection  `koanf:"server"`
	Limits  LimitsSection  `koanf:"limits"`
	Log     LogSection     `koanf:"log"`
	Metrics MetricsSection `koanf:"metrics"`
}

// ServerSection configures the RESP listener(s).
type ServerSection struct {
	Address      string        `koanf:"address"`
	TLSEnabled   bool          `koanf:"tls_enabled"`
	TLSAddress   string        `koanf:"tls_address"`
	TLSCertFile  string        `koanf:"tls_cert_file"`
	TLSKeyFile   string        `koanf:"tls_key_file"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// LimitsSection configures per-IP rate limiting. Protocol-level
// limits (array/bulk/inline length) are compiled-in constants in the
// protocol package rather than runtime configuration.
type LimitsSection struct {
	RateLimit      float64 `koanf:"rate_limit"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`
}

// LogSection configures structured logging.
type LogSection struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	AddSource bool   `koanf:"add_source"`
}

// MetricsSection configures the Prometheus HTTP endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled"`
	Address string `koanf:"address"`
}

// Default returns the configuration used when no file, environment
// variable, or flag overrides a setting.
func Default() Config {
	return Config{
		Server: ServerSection{
			Address:      "127.0.0.1:6379",
			TLSEnabled:   false,
			TLSAddress:   "127.0.0.1:6380",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  5 * time.Minute,
		},
		Limits: LimitsSection{
			RateLimit:      1000,
			RateLimitBurst: 100,
		},
		Log: LogSection{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsSection{
			Enabled: true,
			Address: "127.0.0.1:9121",
		},
	}
}

// Load resolves the configuration from defaults, an optional YAML
// file at path, and environment variables (prefix RESPD_), then
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	loader := confloader.NewLoader(confloader.WithConfigFile(path))
	if err := loader.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Verify(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Verify checks invariants that a bad file or environment variable
// could violate before the server starts listening.
func (c Config) Verify() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.TLSEnabled {
		if c.Server.TLSAddress == "" {
			return fmt.Errorf("server.tls_address must be set when tls_enabled is true")
		}
		if c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "" {
			return fmt.Errorf("server.tls_cert_file and server.tls_key_file are required when tls_enabled is true")
		}
	}
	if c.Limits.RateLimit < 0 {
		return fmt.Errorf("limits.rate_limit must not be negative")
	}
	switch c.Log.Format {
	case "json", "text", "console", "":
	default:
		return fmt.Errorf("log.format %q is not one of json, text, console", c.Log.Format)
	}
	return nil
}
