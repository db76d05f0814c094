package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	// HTTP
	Port           string
	CORSOrigins    []string
	MaxUploadBytes int64

	// Database
	DBDriver    string
	DatabaseURL string
	SQLitePath  string

	CacheTTL time.Duration
	LogLevel string
}

// Load reads configuration from the environment through v. Flags bound to v
// by the caller take precedence over environment variables.
func Load(v *viper.Viper) *Config {
	v.AutomaticEnv()
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=finance port=5432 sslmode=disable")
	v.SetDefault("SQLITE_PATH", "./data/finance.db")
	v.SetDefault("CACHE_TTL", 5*time.Minute)
	v.SetDefault("LOG_LEVEL", "info")

	return &Config{
		Port:           v.GetString("PORT"),
		CORSOrigins:    splitList(v.GetString("CORS_ORIGINS")),
		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
		DBDriver:       strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		SQLitePath:     v.GetString("SQLITE_PATH"),
		CacheTTL:       v.GetDuration("CACHE_TTL"),
		LogLevel:       v.GetString("LOG_LEVEL"),
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("invalid port %q: must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DBDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid DB_DRIVER %q: must be %s or %s", c.DBDriver, DriverPostgres, DriverSQLite))
	}

	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("invalid CACHE_TTL %s: must not be negative", c.CacheTTL))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("invalid MAX_UPLOAD_BYTES %d: must be positive", c.MaxUploadBytes))
	}

	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

// InitDB opens the configured database.
func InitDB(c *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.DBDriver {
	case DriverPostgres:
		dialector = postgres.Open(c.DatabaseURL)
	case DriverSQLite:
		if dir := filepath.Dir(c.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating sqlite directory: %w", err)
			}
		}
		dialector = sqlite.Open(c.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", c.DBDriver, err)
	}
	return db, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
