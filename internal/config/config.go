/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package config loads the queue registry's settings from the environment.
package config

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-envconfig"

	"github.com/chainguard-dev/queue-registry/pkg/queue"
	"github.com/chainguard-dev/queue-registry/pkg/registry"
)

// Config is the process configuration.
type Config struct {
	Port        int    `env:"PORT, default=3000"`
	MetricsPort int    `env:"METRICS_PORT, default=2112"`
	EnablePprof bool   `env:"ENABLE_PPROF, default=false"`
	HomePage    string `env:"HOME_PAGE, default=/"`

	BullPrefix  string `env:"BULL_PREFIX, default=bull"`
	BullVersion string `env:"BULL_VERSION, default=BULLMQ"`

	BackoffStartingDelay time.Duration `env:"BACKOFF_STARTING_DELAY, default=500ms"`
	BackoffMaxDelay      time.Duration `env:"BACKOFF_MAX_DELAY, default=30s"`
	BackoffTimeMultiple  float64       `env:"BACKOFF_TIME_MULTIPLE, default=2"`
	BackoffNbAttempts    int           `env:"BACKOFF_NB_ATTEMPTS, default=10"`

	ScanCount        int64         `env:"SCAN_COUNT, default=0"`
	ScanRate         float64       `env:"SCAN_RATE, default=0"` // pages per second, 0 is unlimited
	ReconcileTimeout time.Duration `env:"RECONCILE_TIMEOUT, default=0"`

	Redis Redis `env:", prefix=REDIS_"`
}

// Redis is the connection configuration for the store.
type Redis struct {
	Host     string `env:"HOST, default=localhost"`
	Port     int    `env:"PORT, default=6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB, default=0"`
	UseTLS   bool   `env:"USE_TLS, default=false"`
}

// Load reads the configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads the configuration from l and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Variant(); err != nil {
		errs = append(errs, err)
	}
	if c.BullPrefix == "" {
		errs = append(errs, errors.New("BULL_PREFIX must not be empty"))
	}
	if err := c.Backoff().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("backoff: %w", err))
	}
	if c.ScanCount < 0 {
		errs = append(errs, fmt.Errorf("SCAN_COUNT must not be negative, got %d", c.ScanCount))
	}
	if c.ScanRate < 0 {
		errs = append(errs, fmt.Errorf("SCAN_RATE must not be negative, got %v", c.ScanRate))
	}
	return errors.Join(errs...)
}

// Variant returns the configured queue backend.
func (c *Config) Variant() (queue.Variant, error) {
	return queue.ParseVariant(c.BullVersion)
}

// Backoff returns the bootstrap retry policy.
func (c *Config) Backoff() registry.Backoff {
	return registry.Backoff{
		InitialDelay: c.BackoffStartingDelay,
		MaxDelay:     c.BackoffMaxDelay,
		Multiplier:   c.BackoffTimeMultiple,
		MaxAttempts:  c.BackoffNbAttempts,
	}
}

// Options returns the go-redis options for the configured store.
func (r Redis) Options() *redis.UniversalOptions {
	opts := &redis.UniversalOptions{
		Addrs:    []string{net.JoinHostPort(r.Host, strconv.Itoa(r.Port))},
		Password: r.Password,
		DB:       r.DB,
	}
	if r.UseTLS {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: r.Host,
		}
	}
	return opts
}
