package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AntonStoeckl/library-loans/core"
)

// Environment variables read by LoadServiceConfig.
const (
	EnvHTTPAddr          = "LOANS_HTTP_ADDR"
	EnvStore             = "LOANS_STORE"
	EnvPostgresDriver    = "LOANS_POSTGRES_DRIVER"
	EnvSQLitePath        = "LOANS_SQLITE_PATH"
	EnvKafkaBrokers      = "LOANS_KAFKA_BROKERS"
	EnvKafkaTopic        = "LOANS_KAFKA_TOPIC"
	EnvMetrics           = "LOANS_METRICS"
	EnvOTLPEndpoint      = "LOANS_OTLP_ENDPOINT"
	EnvOTLPInsecure      = "LOANS_OTLP_INSECURE"
	EnvLogLevel          = "LOANS_LOG_LEVEL"
	EnvMaxActiveBorrows  = "LOANS_MAX_ACTIVE_BORROWS"
	EnvMaxActiveReserves = "LOANS_MAX_ACTIVE_RESERVES"
	EnvRequestTimeout    = "LOANS_REQUEST_TIMEOUT"
	EnvShutdownTimeout   = "LOANS_SHUTDOWN_TIMEOUT"
)

// Store kinds.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// PostgreSQL drivers.
const (
	DriverPGX  = "pgx"
	DriverSQL  = "sql"
	DriverSQLX = "sqlx"
)

// Metrics backends.
const (
	MetricsOTEL       = "otel"
	MetricsPrometheus = "prometheus"
	MetricsNone       = "none"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultSQLitePath      = "loans.db"
	defaultKafkaTopic      = "library.loans"
	defaultLogLevel        = "info"
	defaultOTLPEndpoint    = "localhost:4317"
	defaultRequestTimeout  = 5 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// ErrInvalidServiceConfig is returned by Validate.
var ErrInvalidServiceConfig = errors.New("invalid service configuration")

// ServiceConfig holds everything cmd/loanservice needs to wire the service.
type ServiceConfig struct {
	HTTPAddr        string
	Store           string
	PostgresDriver  string
	PostgresDSN     string
	ReplicaDSN      string
	SQLitePath      string
	KafkaBrokers    []string
	KafkaTopic      string
	Metrics         string
	OTLPEndpoint    string // host:port of the OTLP gRPC collector, used when Metrics is otel
	OTLPInsecure    bool
	LogLevel        string
	Policy          core.LoanPolicy
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// LoadServiceConfig reads the ServiceConfig from the environment, falling back to defaults.
// The result is not validated, so that flags can still override it.
func LoadServiceConfig() ServiceConfig {
	return ServiceConfig{
		HTTPAddr:       getEnvStr(EnvHTTPAddr, defaultHTTPAddr),
		Store:          getEnvStr(EnvStore, StoreSQLite),
		PostgresDriver: getEnvStr(EnvPostgresDriver, DriverPGX),
		PostgresDSN:    PostgresDSN(),
		ReplicaDSN:     PostgresReplicaDSN(),
		SQLitePath:     getEnvStr(EnvSQLitePath, defaultSQLitePath),
		KafkaBrokers:   splitList(os.Getenv(EnvKafkaBrokers)),
		KafkaTopic:     getEnvStr(EnvKafkaTopic, defaultKafkaTopic),
		Metrics:        getEnvStr(EnvMetrics, MetricsNone),
		OTLPEndpoint:   getEnvStr(EnvOTLPEndpoint, defaultOTLPEndpoint),
		OTLPInsecure:   getEnvBool(EnvOTLPInsecure, true),
		LogLevel:       getEnvStr(EnvLogLevel, defaultLogLevel),
		Policy: core.LoanPolicy{
			MaxActiveBorrows:  getEnvInt(EnvMaxActiveBorrows, core.DefaultLoanPolicy().MaxActiveBorrows),
			MaxActiveReserves: getEnvInt(EnvMaxActiveReserves, core.DefaultLoanPolicy().MaxActiveReserves),
		},
		RequestTimeout:  getEnvDuration(EnvRequestTimeout, defaultRequestTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, defaultShutdownTimeout),
	}
}

// KafkaEnabled reports whether loan events should be published.
func (cfg ServiceConfig) KafkaEnabled() bool {
	return len(cfg.KafkaBrokers) > 0
}

// Validate reports all problems at once.
func (cfg ServiceConfig) Validate() error {
	var problems []string

	if cfg.HTTPAddr == "" {
		problems = append(problems, "HTTP address cannot be empty")
	}

	switch cfg.Store {
	case StorePostgres:
		if cfg.PostgresDSN == "" {
			problems = append(problems, "PostgreSQL DSN is required for the postgres store")
		}

		if cfg.PostgresDriver != DriverPGX && cfg.PostgresDriver != DriverSQL && cfg.PostgresDriver != DriverSQLX {
			problems = append(problems, fmt.Sprintf("PostgreSQL driver must be one of [pgx, sql, sqlx], got: %s", cfg.PostgresDriver))
		}
	case StoreSQLite:
		if cfg.SQLitePath == "" {
			problems = append(problems, "SQLite path is required for the sqlite store")
		}
	case StoreMemory:
	default:
		problems = append(problems, fmt.Sprintf("store must be one of [postgres, sqlite, memory], got: %s", cfg.Store))
	}

	if cfg.Metrics != MetricsOTEL && cfg.Metrics != MetricsPrometheus && cfg.Metrics != MetricsNone {
		problems = append(problems, fmt.Sprintf("metrics must be one of [otel, prometheus, none], got: %s", cfg.Metrics))
	}

	if cfg.Metrics == MetricsOTEL && cfg.OTLPEndpoint == "" {
		problems = append(problems, "OTLP endpoint is required for the otel metrics backend")
	}

	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		problems = append(problems, "Kafka topic cannot be empty when brokers are configured")
	}

	if err := cfg.Policy.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if cfg.RequestTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("request timeout must be positive, got: %s", cfg.RequestTimeout))
	}

	if cfg.ShutdownTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("shutdown timeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidServiceConfig, strings.Join(problems, "; "))
	}

	return nil
}

// LogConfiguration hands the effective configuration to logFunc, secrets excluded.
func (cfg ServiceConfig) LogConfiguration(logFunc func(msg string, args ...any)) {
	if logFunc == nil {
		return
	}

	logFunc("service configuration loaded",
		"http_addr", cfg.HTTPAddr,
		"store", cfg.Store,
		"postgres_driver", cfg.PostgresDriver,
		"replica", cfg.ReplicaDSN != "",
		"kafka_brokers", cfg.KafkaBrokers,
		"kafka_topic", cfg.KafkaTopic,
		"metrics", cfg.Metrics,
		"otlp_endpoint", cfg.OTLPEndpoint,
		"max_active_borrows", cfg.Policy.MaxActiveBorrows,
		"max_active_reserves", cfg.Policy.MaxActiveReserves,
		"request_timeout", cfg.RequestTimeout,
	)
}

func splitList(raw string) []string {
	var items []string

	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}

	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}

	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}

	return fallback
}
