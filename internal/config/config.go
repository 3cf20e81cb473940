package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv   string
	LogLevel string

	DBDriver string
	DBPath   string

	RedisAddr         string
	CacheEnabled      bool
	BenchmarkCacheTTL time.Duration

	HTTPPort              int
	GRPCPort              int
	GRPCReflectionEnabled bool
	GRPCTimeout           time.Duration

	BatchPageSize      int
	BatchWorkers       int
	BatchRatePerSec    float64
	PersistTimeout     time.Duration
	BenchmarkPeerLimit int
	SectorWeightsFile  string
}

var defaults = map[string]any{
	"APP_ENV":                 "development",
	"LOG_LEVEL":               "",
	"DB_DRIVER":               "sqlite3",
	"DB_PATH":                 "./data/ila.db",
	"REDIS_ADDR":              "localhost:6379",
	"CACHE_ENABLED":           false,
	"BENCHMARK_CACHE_TTL":     "1m",
	"HTTP_PORT":               8080,
	"GRPC_PORT":               50051,
	"GRPC_REFLECTION_ENABLED": false,
	"GRPC_TIMEOUT":            "2m",
	"BATCH_PAGE_SIZE":         100,
	"BATCH_WORKERS":           4,
	"BATCH_RATE_PER_SEC":      0.0,
	"PERSIST_TIMEOUT":         "5s",
	"BENCHMARK_PEER_LIMIT":    50,
	"SECTOR_WEIGHTS_FILE":     "",
}

// Load reads the given .env files (".env" when none are named), then the process
// environment. Missing .env files are ignored; variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	cfg := &Config{
		AppEnv:                v.GetString("APP_ENV"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		DBDriver:              v.GetString("DB_DRIVER"),
		DBPath:                v.GetString("DB_PATH"),
		RedisAddr:             v.GetString("REDIS_ADDR"),
		CacheEnabled:          v.GetBool("CACHE_ENABLED"),
		BenchmarkCacheTTL:     v.GetDuration("BENCHMARK_CACHE_TTL"),
		HTTPPort:              v.GetInt("HTTP_PORT"),
		GRPCPort:              v.GetInt("GRPC_PORT"),
		GRPCReflectionEnabled: v.GetBool("GRPC_REFLECTION_ENABLED"),
		GRPCTimeout:           v.GetDuration("GRPC_TIMEOUT"),
		BatchPageSize:         v.GetInt("BATCH_PAGE_SIZE"),
		BatchWorkers:          v.GetInt("BATCH_WORKERS"),
		BatchRatePerSec:       v.GetFloat64("BATCH_RATE_PER_SEC"),
		PersistTimeout:        v.GetDuration("PERSIST_TIMEOUT"),
		BenchmarkPeerLimit:    v.GetInt("BENCHMARK_PEER_LIMIT"),
		SectorWeightsFile:     v.GetString("SECTOR_WEIGHTS_FILE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects values the servers cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.DBDriver == "" {
		errs = append(errs, errors.New("DB_DRIVER is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH is required"))
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT %d out of range", c.HTTPPort))
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("GRPC_PORT %d out of range", c.GRPCPort))
	}
	if c.BatchPageSize < 0 {
		errs = append(errs, fmt.Errorf("BATCH_PAGE_SIZE must not be negative, got %d", c.BatchPageSize))
	}
	if c.BatchWorkers < 0 {
		errs = append(errs, fmt.Errorf("BATCH_WORKERS must not be negative, got %d", c.BatchWorkers))
	}
	if c.BatchRatePerSec < 0 {
		errs = append(errs, fmt.Errorf("BATCH_RATE_PER_SEC must not be negative, got %g", c.BatchRatePerSec))
	}
	if c.BenchmarkPeerLimit < 0 {
		errs = append(errs, fmt.Errorf("BENCHMARK_PEER_LIMIT must not be negative, got %d", c.BenchmarkPeerLimit))
	}
	return errors.Join(errs...)
}

// NewLogger creates a new Zap logger based on the config. LOG_LEVEL, when set, overrides
// the environment's default level.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.AppEnv == "production" {
		zc = zap.NewProductionConfig()
	}

	if cfg.LogLevel != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	return zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}
