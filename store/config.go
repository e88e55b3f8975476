package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/c360/memstore/errors"
)

// Config controls a single store's behavior. It is fixed at first creation
// of the store; a differing Config passed to a later GetOrCreate for the
// same name is ignored.
type Config struct {
	// Feature toggles
	EnableAuditLogging  bool `json:"enable_audit_logging"`
	EnableValidation    bool `json:"enable_validation"`
	EnableIndexing      bool `json:"enable_indexing"`
	EnableMetrics       bool `json:"enable_metrics"`
	EnableEventEmission bool `json:"enable_event_emission"`
	EnableCaching       bool `json:"enable_caching"`

	// MaxStorageSize caps the number of items; create fails with
	// CapacityExceeded beyond it. Must be positive.
	MaxStorageSize int `json:"max_storage_size"`

	// Expiry sweeping
	AutoCleanup     bool          `json:"auto_cleanup"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
	TemporaryMaxAge time.Duration `json:"temporary_max_age"`

	// CacheSize bounds the per-store LRU cache.
	CacheSize int `json:"cache_size"`

	// EventBufferSize bounds the event dispatch queue; overflow drops the
	// oldest pending event.
	EventBufferSize int `json:"event_buffer_size"`

	// StrictOperators surfaces unsupported query operator keys as errors
	// instead of the permissive literal-equality fallback.
	StrictOperators bool `json:"strict_operators"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		EnableAuditLogging:  false,
		EnableValidation:    true,
		EnableIndexing:      true,
		EnableMetrics:       true,
		EnableEventEmission: true,
		EnableCaching:       true,
		MaxStorageSize:      5000,
		AutoCleanup:         true,
		CleanupInterval:     60 * time.Second,
		TemporaryMaxAge:     24 * time.Hour,
		CacheSize:           100,
		EventBufferSize:     1024,
	}
}

// ApplyDefaults fills unset fields with default values
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.MaxStorageSize == 0 {
		c.MaxStorageSize = defaults.MaxStorageSize
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = defaults.CleanupInterval
	}
	if c.TemporaryMaxAge == 0 {
		c.TemporaryMaxAge = defaults.TemporaryMaxAge
	}
	if c.CacheSize == 0 {
		c.CacheSize = defaults.CacheSize
	}
	if c.EventBufferSize == 0 {
		c.EventBufferSize = defaults.EventBufferSize
	}
}

// Validate checks if the configuration is valid and returns classified
// errors on bad values
func (c *Config) Validate() error {
	if c.MaxStorageSize <= 0 {
		msg := fmt.Sprintf("max_storage_size must be positive, got %d", c.MaxStorageSize)
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "Validate", msg)
	}
	if c.CacheSize <= 0 {
		msg := fmt.Sprintf("cache_size must be positive, got %d", c.CacheSize)
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "Validate", msg)
	}
	if c.EventBufferSize <= 0 {
		msg := fmt.Sprintf("event_buffer_size must be positive, got %d", c.EventBufferSize)
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "Validate", msg)
	}
	if c.AutoCleanup && c.CleanupInterval <= 0 {
		msg := fmt.Sprintf("cleanup_interval must be positive when auto_cleanup is enabled, got %v", c.CleanupInterval)
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "Validate", msg)
	}
	if c.TemporaryMaxAge <= 0 {
		msg := fmt.Sprintf("temporary_max_age must be positive, got %v", c.TemporaryMaxAge)
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "Validate", msg)
	}
	return nil
}

// LoadConfig reads a Config from a JSON file, applies defaults, and
// validates the result.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.WrapInvalid(err, "Store", "LoadConfig", "read config file")
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.WrapInvalid(err, "Store", "LoadConfig", "parse config file")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
