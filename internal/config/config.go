package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	// Config holds configuration settings for the orchestrator
	Config struct {
		// API server
		APIHost  string
		APIPort  int
		LogLevel string

		// Engine
		MaxIterations   int
		StepTimeout     int64
		Work            WorkConfig
		ShutdownTimeout time.Duration

		// Workflow preload
		WorkflowDir string

		// Run archive
		Archive       ArchiveConfig
		BlobBucketURL string
	}

	// WorkConfig controls the pacing of retry attempts within a step
	WorkConfig struct {
		InitBackoff int64
		MaxBackoff  int64
		BackoffType string
	}

	// ArchiveConfig holds redis settings for the run archive. The archive
	// is disabled when Addr is empty
	ArchiveConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
		TTL      time.Duration
	}
)

const (
	BackoffTypeFixed       = "fixed"
	BackoffTypeLinear      = "linear"
	BackoffTypeExponential = "exponential"
)

const (
	DefaultAPIHost = "0.0.0.0"
	DefaultAPIPort = 8080
	MaxTCPPort     = 65535

	// DefaultMaxIterations is the global cap on step invocations per run.
	// It bounds failure loop-backs that never resolve
	DefaultMaxIterations = 50
	MaxMaxIterations     = 100_000

	DefaultShutdownTimeout = 10 * time.Second

	DefaultArchivePrefix = "agentos"
	DefaultArchiveTTL    = 24 * time.Hour
	DefaultRedisDB       = 0

	DefaultBackoffType = BackoffTypeFixed

	MaxStepTimeout = int64(24 * 60 * 60 * 1000) // 1 day in ms
	MaxBackoff     = int64(60 * 60 * 1000)      // 1 hour in ms
)

var (
	ErrInvalidAPIPort       = errors.New("invalid API port")
	ErrInvalidMaxIterations = errors.New("max iterations must be positive")
	ErrNegativeStepTimeout  = errors.New("step timeout cannot be negative")
	ErrNegativeBackoff      = errors.New("initial backoff cannot be negative")
	ErrMaxBackoffTooSmall   = errors.New(
		"max backoff must be >= initial backoff",
	)
	ErrInvalidBackoffType = errors.New("invalid backoff type")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// engine, API server, and run archive
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:       DefaultAPIHost,
		APIPort:       DefaultAPIPort,
		LogLevel:      "info",
		MaxIterations: DefaultMaxIterations,
		Work: WorkConfig{
			BackoffType: DefaultBackoffType,
		},
		Archive: ArchiveConfig{
			DB:     DefaultRedisDB,
			Prefix: DefaultArchivePrefix,
			TTL:    DefaultArchiveTTL,
		},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any value cannot be parsed or is out of range
func (c *Config) LoadFromEnv() error {
	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if backoffType := os.Getenv("RETRY_BACKOFF_TYPE"); backoffType != "" {
		c.Work.BackoffType = backoffType
	}
	if dir := os.Getenv("WORKFLOW_DIR"); dir != "" {
		c.WorkflowDir = dir
	}
	if bucketURL := os.Getenv("BLOB_BUCKET_URL"); bucketURL != "" {
		c.BlobBucketURL = bucketURL
	}

	if addr := os.Getenv("ARCHIVE_REDIS_ADDR"); addr != "" {
		c.Archive.Addr = addr
	}
	if password := os.Getenv("ARCHIVE_REDIS_PASSWORD"); password != "" {
		c.Archive.Password = password
	}
	if prefix := os.Getenv("ARCHIVE_REDIS_PREFIX"); prefix != "" {
		c.Archive.Prefix = prefix
	}
	if dbStr := os.Getenv("ARCHIVE_REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Archive.DB = db
		}
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"MAX_ITERATIONS", &c.MaxIterations, 0, MaxMaxIterations,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"STEP_TIMEOUT", &c.StepTimeout, -1, MaxStepTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RETRY_INITIAL_BACKOFF", &c.Work.InitBackoff, -1, MaxBackoff,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RETRY_MAX_BACKOFF", &c.Work.MaxBackoff, -1, MaxBackoff,
	); err != nil {
		return err
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if c.MaxIterations <= 0 {
		return ErrInvalidMaxIterations
	}

	if c.StepTimeout < 0 {
		return ErrNegativeStepTimeout
	}

	if c.Work.InitBackoff < 0 {
		return ErrNegativeBackoff
	}

	if c.Work.MaxBackoff != 0 && c.Work.MaxBackoff < c.Work.InitBackoff {
		return ErrMaxBackoffTooSmall
	}

	switch c.Work.BackoffType {
	case BackoffTypeFixed, BackoffTypeLinear, BackoffTypeExponential:
	default:
		return fmt.Errorf("%w: %s",
			ErrInvalidBackoffType, c.Work.BackoffType)
	}

	return nil
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}
