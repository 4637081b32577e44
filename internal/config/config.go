// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`
	AdminAPIKey string   `mapstructure:"adminapikey"`

	// File paths
	DatabasePath string `mapstructure:"storagepath"`
	DatabaseName string `mapstructure:"-"` // Derived from other settings

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Job scheduling settings
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`

	// Analytics engine settings
	RetentionDays          int    `mapstructure:"retentiondays"`
	BoundaryCacheTTLSecs   int    `mapstructure:"boundarycachettlsecs"`
	BusinessUTCOffsetHours int    `mapstructure:"businessutcoffsethours"`
	LandingPagePath        string `mapstructure:"landingpagepath"`
	CheckoutPagePath       string `mapstructure:"checkoutpagepath"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		// A missing .env file is fine, env vars take over
		_ = godotenv.Load()

		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "coursepulse")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("storagepath", "storage")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("jobintervalseconds", 3600)
		v.SetDefault("retentiondays", 3)
		v.SetDefault("boundarycachettlsecs", 300)
		v.SetDefault("businessutcoffsethours", 8)
		v.SetDefault("landingpagepath", "/")
		v.SetDefault("checkoutpagepath", "/checkout")

		// Bind environment variables
		v.BindEnv("appname", "COURSEPULSE_APP_NAME")
		v.BindEnv("appport", "COURSEPULSE_APP_PORT")
		v.BindEnv("environment", "COURSEPULSE_ENV")
		v.BindEnv("loglevel", "COURSEPULSE_LOG_LEVEL")
		v.BindEnv("adminapikey", "COURSEPULSE_ADMIN_API_KEY")
		v.BindEnv("storagepath", "COURSEPULSE_STORAGE_PATH")
		v.BindEnv("logsdir", "COURSEPULSE_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "COURSEPULSE_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "COURSEPULSE_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "COURSEPULSE_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbtype", "COURSEPULSE_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "COURSEPULSE_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "COURSEPULSE_DB_MAX_IDLE_CONNS")
		v.BindEnv("jobintervalseconds", "COURSEPULSE_JOB_INTERVAL_SECONDS")
		v.BindEnv("retentiondays", "COURSEPULSE_RETENTION_DAYS")
		v.BindEnv("boundarycachettlsecs", "COURSEPULSE_BOUNDARY_CACHE_TTL_SECS")
		v.BindEnv("businessutcoffsethours", "COURSEPULSE_BUSINESS_UTC_OFFSET_HOURS")
		v.BindEnv("landingpagepath", "COURSEPULSE_LANDING_PAGE_PATH")
		v.BindEnv("checkoutpagepath", "COURSEPULSE_CHECKOUT_PAGE_PATH")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		// Validate
		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		// Set derived values
		cfg.DatabaseName = cfg.GetDatabasePath()

		if cfg.IsProduction() && cfg.AdminAPIKey == "" {
			log.Fatal("Production requires COURSEPULSE_ADMIN_API_KEY to be set")
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validDBTypes := map[string]bool{
		SQLiteDatabase: true,
	}
	if !validDBTypes[c.DatabaseType] {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	if c.RetentionDays < 1 {
		return fmt.Errorf("retention days must be at least 1, got %d", c.RetentionDays)
	}
	if c.BoundaryCacheTTLSecs < 0 {
		return fmt.Errorf("boundary cache TTL must not be negative, got %d", c.BoundaryCacheTTLSecs)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (required for test stability)
// - Development/Production: 10 (allows concurrent reads for dashboard queries)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// GetLogLevel returns the log level as a string
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// RetentionWindow returns the raw event retention window as a duration.
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// BoundaryCacheTTL returns the boundary cache TTL as a duration.
func (c *Config) BoundaryCacheTTL() time.Duration {
	return time.Duration(c.BoundaryCacheTTLSecs) * time.Second
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
