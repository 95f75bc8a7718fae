package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress            string
	DatabaseURI           string
	TokenSecret           string
	SystemKeyHash         string
	PlansFile             string
	GenerationTimeout     time.Duration
	MaxGeneratingDuration time.Duration
	SweepInterval         time.Duration
	SweepBatchSize        int
	WorkerPoolSize        int
	RetryAttempts         int
	ShutdownTimeout       time.Duration
	DraftGeneratorURL     string
	VertexProject         string
	VertexRegion          string
	VertexModel           string
	NotifySinkURL         string
	LogLevel              string
}

const (
	defaultRunAddress            = ":8080"
	defaultTokenSecret           = "change-me-in-production"
	defaultGenerationTimeout     = 2 * time.Minute
	defaultMaxGeneratingDuration = 15 * time.Minute
	defaultSweepInterval         = time.Minute
	defaultSweepBatchSize        = 50
	defaultWorkerPoolSize        = 4
	defaultRetryAttempts         = 3
	defaultShutdownTimeout       = 10 * time.Second
	defaultVertexRegion          = "us-central1"
	defaultVertexModel           = "gemini-1.5-pro"
	defaultLogLevel              = "info"
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:            getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:           getString(lookup, "DATABASE_URI", ""),
		TokenSecret:           getString(lookup, "TOKEN_SECRET", defaultTokenSecret),
		SystemKeyHash:         getString(lookup, "SYSTEM_KEY_HASH", ""),
		PlansFile:             getString(lookup, "PLANS_FILE", ""),
		GenerationTimeout:     getDuration(lookup, "GENERATION_TIMEOUT", defaultGenerationTimeout),
		MaxGeneratingDuration: getDuration(lookup, "MAX_GENERATING_DURATION", defaultMaxGeneratingDuration),
		SweepInterval:         getDuration(lookup, "SWEEP_INTERVAL", defaultSweepInterval),
		SweepBatchSize:        getInt(lookup, "SWEEP_BATCH_SIZE", defaultSweepBatchSize),
		WorkerPoolSize:        getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		RetryAttempts:         getInt(lookup, "RETRY_ATTEMPTS", defaultRetryAttempts),
		ShutdownTimeout:       getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		DraftGeneratorURL:     getString(lookup, "DRAFT_GENERATOR_URL", ""),
		VertexProject:         getString(lookup, "VERTEX_PROJECT", ""),
		VertexRegion:          getString(lookup, "VERTEX_REGION", defaultVertexRegion),
		VertexModel:           getString(lookup, "VERTEX_MODEL", defaultVertexModel),
		NotifySinkURL:         getString(lookup, "NOTIFY_SINK_URL", ""),
		LogLevel:              getString(lookup, "LOG_LEVEL", defaultLogLevel),
	}

	fs := flag.NewFlagSet("letterdesk", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		generationTimeoutStr = cfg.GenerationTimeout.String()
		maxGeneratingStr     = cfg.MaxGeneratingDuration.String()
		sweepIntervalStr     = cfg.SweepInterval.String()
		shutdownTimeoutStr   = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN or memory://")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "Secret for signing access tokens")
	fs.StringVar(&cfg.PlansFile, "plans", cfg.PlansFile, "Plan catalogue YAML file")
	fs.StringVar(&cfg.DraftGeneratorURL, "generator-url", cfg.DraftGeneratorURL, "Draft generation service base URL")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent generation workers")
	fs.IntVar(&cfg.SweepBatchSize, "sweep-batch", cfg.SweepBatchSize, "Maximum letters per sweep")
	fs.IntVar(&cfg.RetryAttempts, "retry-attempts", cfg.RetryAttempts, "Attempts for conflicting updates")
	fs.StringVar(&generationTimeoutStr, "generation-timeout", generationTimeoutStr, "Timeout for a single draft generation")
	fs.StringVar(&maxGeneratingStr, "max-generating", maxGeneratingStr, "Maximum time a letter may stay in generating")
	fs.StringVar(&sweepIntervalStr, "sweep-interval", sweepIntervalStr, "Interval between stale generation sweeps")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.GenerationTimeout, err = time.ParseDuration(generationTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid generation timeout: %w", err)
	}

	if cfg.MaxGeneratingDuration, err = time.ParseDuration(maxGeneratingStr); err != nil {
		return nil, fmt.Errorf("invalid max generating duration: %w", err)
	}

	if cfg.SweepInterval, err = time.ParseDuration(sweepIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid sweep interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if secretFile, ok := lookup("TOKEN_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read token secret file: %w", err)
		}
		cfg.TokenSecret = strings.TrimSpace(string(content))
	}

	if hashFile, ok := lookup("SYSTEM_KEY_HASH_FILE"); ok && hashFile != "" {
		content, err := os.ReadFile(hashFile)
		if err != nil {
			return nil, fmt.Errorf("read system key hash file: %w", err)
		}
		cfg.SystemKeyHash = strings.TrimSpace(string(content))
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = defaultSweepBatchSize
	}

	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}

	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = defaultGenerationTimeout
	}

	if cfg.MaxGeneratingDuration <= 0 {
		cfg.MaxGeneratingDuration = defaultMaxGeneratingDuration
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.MaxGeneratingDuration <= cfg.GenerationTimeout {
		return nil, fmt.Errorf("max generating duration %s must exceed generation timeout %s",
			cfg.MaxGeneratingDuration, cfg.GenerationTimeout)
	}

	return cfg, nil
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
