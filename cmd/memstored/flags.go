package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	SchemaPath  string
	StoreName   string
	LogLevel    string
	LogFormat   string
	MetricsPort int
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("MEMSTORE_CONFIG", ""),
		"Path to store configuration JSON, empty for defaults (env: MEMSTORE_CONFIG)")

	flag.StringVar(&cfg.SchemaPath, "schema",
		getEnv("MEMSTORE_SCHEMA", ""),
		"Path to validation schema YAML, empty for none (env: MEMSTORE_SCHEMA)")

	flag.StringVar(&cfg.StoreName, "store",
		getEnv("MEMSTORE_STORE", "default"),
		"Name of the store to create at startup (env: MEMSTORE_STORE)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("MEMSTORE_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: MEMSTORE_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("MEMSTORE_LOG_FORMAT", "json"),
		"Log format: json, text (env: MEMSTORE_LOG_FORMAT)")

	flag.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("MEMSTORE_METRICS_PORT", 9090),
		"Prometheus exposition port, 0 to disable (env: MEMSTORE_METRICS_PORT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}
	if cfg.SchemaPath != "" {
		if _, err := os.Stat(cfg.SchemaPath); err != nil {
			return fmt.Errorf("schema file not found: %s", cfg.SchemaPath)
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	if cfg.StoreName == "" {
		return fmt.Errorf("store name cannot be empty")
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - In-process object store daemon

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with custom store config and schema
  %s --config=/etc/memstore/store.json --schema=/etc/memstore/schema.yaml

  # Run with debug logging on a different metrics port
  %s --log-level=debug --log-format=text --metrics-port=9191

  # Run with environment variables
  export MEMSTORE_CONFIG=/etc/memstore/store.json
  export MEMSTORE_LOG_LEVEL=debug
  %s

  # Validate configuration only
  %s --config=/etc/memstore/store.json --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
