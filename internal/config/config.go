package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress  string
	DatabaseURI string

	MobileMoneyBaseURL       string
	MobileMoneyAPIKey        string
	MobileMoneyWebhookSecret string
	CardBaseURL              string
	CardAPIKey               string
	CardWebhookSecret        string

	ProviderTimeout  time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	PendingMaxWait    time.Duration
	ReconcileInterval time.Duration
	WorkerPoolSize    int
	SweepBatch        int
	ShutdownTimeout   time.Duration
}

const (
	defaultRunAddress        = ":8080"
	defaultProviderTimeout   = 5 * time.Second
	defaultRetryMaxAttempts  = 3
	defaultRetryBaseDelay    = 200 * time.Millisecond
	defaultRetryMaxDelay     = 2 * time.Second
	defaultPendingMaxWait    = 30 * time.Minute
	defaultReconcileInterval = 3 * time.Minute
	defaultWorkerPoolSize    = 4
	defaultSweepBatch        = 32
	defaultShutdownTimeout   = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:  getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI: getString(lookup, "DATABASE_URI", ""),

		MobileMoneyBaseURL:       getString(lookup, "MOBILE_MONEY_BASE_URL", ""),
		MobileMoneyAPIKey:        getString(lookup, "MOBILE_MONEY_API_KEY", ""),
		MobileMoneyWebhookSecret: getString(lookup, "MOBILE_MONEY_WEBHOOK_SECRET", ""),
		CardBaseURL:              getString(lookup, "CARD_BASE_URL", ""),
		CardAPIKey:               getString(lookup, "CARD_API_KEY", ""),
		CardWebhookSecret:        getString(lookup, "CARD_WEBHOOK_SECRET", ""),

		ProviderTimeout:  getDuration(lookup, "PROVIDER_TIMEOUT", defaultProviderTimeout),
		RetryMaxAttempts: getInt(lookup, "RETRY_MAX_ATTEMPTS", defaultRetryMaxAttempts),
		RetryBaseDelay:   getDuration(lookup, "RETRY_BASE_DELAY", defaultRetryBaseDelay),
		RetryMaxDelay:    getDuration(lookup, "RETRY_MAX_DELAY", defaultRetryMaxDelay),

		PendingMaxWait:    getDuration(lookup, "PENDING_MAX_WAIT", defaultPendingMaxWait),
		ReconcileInterval: getDuration(lookup, "RECONCILE_INTERVAL", defaultReconcileInterval),
		WorkerPoolSize:    getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		SweepBatch:        getInt(lookup, "SWEEP_BATCH_SIZE", defaultSweepBatch),
		ShutdownTimeout:   getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("payflow", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		providerTimeoutStr   = cfg.ProviderTimeout.String()
		reconcileIntervalStr = cfg.ReconcileInterval.String()
		pendingMaxWaitStr    = cfg.PendingMaxWait.String()
		shutdownTimeoutStr   = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.MobileMoneyBaseURL, "mobile-money-url", cfg.MobileMoneyBaseURL, "Mobile money gateway base URL")
	fs.StringVar(&cfg.CardBaseURL, "card-url", cfg.CardBaseURL, "Card gateway base URL")
	fs.StringVar(&providerTimeoutStr, "provider-timeout", providerTimeoutStr, "Timeout per outbound provider call")
	fs.IntVar(&cfg.RetryMaxAttempts, "retry-attempts", cfg.RetryMaxAttempts, "Maximum attempts per provider operation")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent reconciliation workers")
	fs.StringVar(&reconcileIntervalStr, "reconcile-interval", reconcileIntervalStr, "Interval between reconciliation sweeps")
	fs.StringVar(&pendingMaxWaitStr, "pending-max-wait", pendingMaxWaitStr, "How long an order may wait for confirmation")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.IntVar(&cfg.SweepBatch, "sweep-batch", cfg.SweepBatch, "Maximum orders per reconciliation batch")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ProviderTimeout, err = time.ParseDuration(providerTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid provider timeout: %w", err)
	}

	if cfg.ReconcileInterval, err = time.ParseDuration(reconcileIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid reconcile interval: %w", err)
	}

	if cfg.PendingMaxWait, err = time.ParseDuration(pendingMaxWaitStr); err != nil {
		return nil, fmt.Errorf("invalid pending max wait: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if err := loadSecretFiles(cfg, lookup); err != nil {
		return nil, err
	}

	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = defaultRetryMaxAttempts
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = defaultSweepBatch
	}

	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}

	if cfg.PendingMaxWait <= 0 {
		cfg.PendingMaxWait = defaultPendingMaxWait
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.MobileMoneyBaseURL == "" {
		return nil, fmt.Errorf("mobile money gateway base URL must be provided")
	}

	if cfg.CardBaseURL == "" {
		return nil, fmt.Errorf("card gateway base URL must be provided")
	}

	return cfg, nil
}

// loadSecretFiles replaces secrets with file contents when *_FILE variables
// are set, for compatibility with container secret mounts.
func loadSecretFiles(cfg *Config, lookup envLookup) error {
	targets := []struct {
		env  string
		dest *string
	}{
		{"MOBILE_MONEY_API_KEY_FILE", &cfg.MobileMoneyAPIKey},
		{"MOBILE_MONEY_WEBHOOK_SECRET_FILE", &cfg.MobileMoneyWebhookSecret},
		{"CARD_API_KEY_FILE", &cfg.CardAPIKey},
		{"CARD_WEBHOOK_SECRET_FILE", &cfg.CardWebhookSecret},
	}
	for _, target := range targets {
		file, ok := lookup(target.env)
		if !ok || file == "" {
			continue
		}
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", target.env, err)
		}
		*target.dest = string(content)
	}
	return nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
