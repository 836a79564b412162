package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"totopool/database"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Redis configuration, empty disables the pool cache and worker lock
	RedisURL string

	// NATS configuration, empty disables event publishing
	NATSServers string

	// Ops HTTP server
	OpsAddr string

	// Payout configuration
	PayoutPolicy    string
	HouseFeePercent decimal.Decimal
	BiggestWinTTL   time.Duration

	// Round lifecycle
	SelectionDuration    time.Duration
	RoundLookahead       int
	MatchesPerRound      int
	WorkerPollInterval   time.Duration
	MaxVariantsPerCoupon int
	StartingBalance      decimal.Decimal

	// Result source
	RandomOrgURL        string
	RandomOrgAPIKey     string
	ResultSourceTimeout time.Duration
	ForceOutcome        string // one of "1", "X", "2"; forces every match result

	// Live pool cache
	PoolCacheTTL time.Duration

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp", "prometheus" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from the environment, reading a .env file first
// when one exists
func load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to read .env file")
	}

	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),
		RedisURL:     os.Getenv("REDIS_URL"),
		NATSServers:  os.Getenv("NATS_SERVERS"),
		OpsAddr:      getEnvWithDefault("OPS_ADDR", ":8080"),

		PayoutPolicy:  getEnvWithDefault("PAYOUT_POLICY", "pool_share"),
		BiggestWinTTL: getDuration("BIGGEST_WIN_TTL", 168*time.Hour),

		SelectionDuration:    getDuration("SELECTION_DURATION", 180*time.Second),
		RoundLookahead:       getInt("ROUND_LOOKAHEAD", 8),
		MatchesPerRound:      getInt("MATCHES_PER_ROUND", 10),
		WorkerPollInterval:   getDuration("WORKER_POLL_INTERVAL", 5*time.Second),
		MaxVariantsPerCoupon: getInt("MAX_VARIANTS_PER_COUPON", 59049),

		RandomOrgURL:        getEnvWithDefault("RANDOM_ORG_URL", "https://api.random.org/json-rpc/4/invoke"),
		RandomOrgAPIKey:     os.Getenv("RANDOM_ORG_API_KEY"),
		ResultSourceTimeout: getDuration("RESULT_SOURCE_TIMEOUT", 10*time.Second),
		ForceOutcome:        os.Getenv("FORCE_OUTCOME"),

		PoolCacheTTL: getDuration("POOL_CACHE_TTL", 30*time.Second),

		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "totopool"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "prometheus"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelExportIntervalMillis: getInt("OTEL_EXPORT_INTERVAL_MILLIS", 10000),

		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		Environment: os.Getenv("ENVIRONMENT"),
	}

	var err error
	if config.HouseFeePercent, err = getDecimal("HOUSE_FEE_PERCENT", "5"); err != nil {
		return nil, err
	}
	if config.StartingBalance, err = getDecimal("STARTING_BALANCE", "0"); err != nil {
		return nil, err
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if err := config.Validate(); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// Validate checks required and range-bound settings
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.HouseFeePercent.IsNegative() || c.HouseFeePercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("HOUSE_FEE_PERCENT must be in [0, 100), got %s", c.HouseFeePercent)
	}
	if c.StartingBalance.IsNegative() {
		return fmt.Errorf("STARTING_BALANCE cannot be negative")
	}
	switch c.ForceOutcome {
	case "", "1", "X", "x", "2":
	default:
		return fmt.Errorf("FORCE_OUTCOME must be one of 1, X, 2, got %q", c.ForceOutcome)
	}
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.WithField("key", key).Warn("Ignoring malformed integer setting")
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		log.WithField("key", key).Warn("Ignoring malformed duration setting")
	}
	return defaultValue
}

func getDecimal(key, defaultValue string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnvWithDefault(key, defaultValue))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s is not a number: %w", key, err)
	}
	return d, nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:          "test",
		OpsAddr:              ":0",
		PayoutPolicy:         "pool_share",
		HouseFeePercent:      decimal.NewFromInt(5),
		BiggestWinTTL:        168 * time.Hour,
		SelectionDuration:    180 * time.Second,
		RoundLookahead:       8,
		MatchesPerRound:      10,
		WorkerPollInterval:   5 * time.Second,
		MaxVariantsPerCoupon: 59049,
		StartingBalance:      decimal.Zero,
		ResultSourceTimeout:  time.Second,
		PoolCacheTTL:         30 * time.Second,
		OTelServiceName:      "totopool-test",
		OTelExporterType:     "none",
		LogLevel:             "debug",
	}
}
