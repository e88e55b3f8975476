// Package main implements the memstored daemon: it hosts a store registry
// with a configured root store and exposes the registry's Prometheus metrics
// over HTTP. The store itself stays an in-process primitive; this binary is
// the operational wrapper around it.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/memstore/metric"
	"github.com/c360/memstore/store"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "memstored"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	storeCfg, schema, err := loadStoreSettings(cliCfg)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		slog.Info("Configuration is valid",
			"config_path", cliCfg.ConfigPath,
			"schema_path", cliCfg.SchemaPath)
		return nil
	}

	slog.Info("Starting memstored",
		"version", Version,
		"build_time", BuildTime,
		"store", cliCfg.StoreName,
		"metrics_port", cliCfg.MetricsPort)

	metricsRegistry := metric.NewMetricsRegistry()
	registry := store.NewRegistry(
		store.WithRegistryLogger(logger),
		store.WithRegistryMetrics(metricsRegistry),
	)
	defer registry.DestroyAll()

	rootStore, err := registry.GetOrCreate(cliCfg.StoreName, storeCfg)
	if err != nil {
		return fmt.Errorf("create store %q: %w", cliCfg.StoreName, err)
	}
	if schema != nil {
		rootStore.SetSchema(schema)
		slog.Info("Validation schema installed", "fields", len(schema))
	}

	var metricsServer *metric.Server
	if cliCfg.MetricsPort > 0 {
		metricsServer = metric.NewServer(cliCfg.MetricsPort, "/metrics", metricsRegistry)
		go func() {
			if err := metricsServer.Start(); err != nil {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
		slog.Info("Metrics exposition started", "address", metricsServer.Address())
	}

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("Shutdown signal received", "signal", sig.String())

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			slog.Warn("Metrics server stop failed", "error", err)
		}
	}

	slog.Info("Shutdown complete", "stores", registry.ListStores())
	return nil
}

// loadStoreSettings resolves the store config and optional schema from the
// CLI flags, falling back to defaults when no config file is given.
func loadStoreSettings(cliCfg *CLIConfig) (store.Config, store.Schema, error) {
	storeCfg := store.DefaultConfig()
	if cliCfg.ConfigPath != "" {
		loaded, err := store.LoadConfig(cliCfg.ConfigPath)
		if err != nil {
			return store.Config{}, nil, fmt.Errorf("load config: %w", err)
		}
		storeCfg = loaded
	}

	var schema store.Schema
	if cliCfg.SchemaPath != "" {
		loaded, err := store.LoadSchemaFile(cliCfg.SchemaPath)
		if err != nil {
			return store.Config{}, nil, fmt.Errorf("load schema: %w", err)
		}
		schema = loaded
	}
	return storeCfg, schema, nil
}
