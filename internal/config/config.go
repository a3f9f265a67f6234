package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime settings for the billing server and CLI.
type Config struct {
	Database DatabaseConfig
	HTTP     HTTPConfig
	Log      LogConfig
	Lock     LockConfig

	// CompanyCode selects the default company when a caller does not name one.
	CompanyCode    string
	MigrationsPath string
}

type DatabaseConfig struct {
	URL      string
	MaxConns int32
}

type HTTPConfig struct {
	Addr           string
	AllowedOrigins string
	MaxBodyBytes   int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// LockConfig selects how postings are serialized per product and per voucher.
// Backend "local" uses in-process mutexes; "redis" uses distributed locks so
// several server instances can share one database.
type LockConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	RetryInterval time.Duration
	RetryLimit    int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.max_body_bytes", 1<<20)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("lock.backend", "local")
	v.SetDefault("lock.redis_addr", "localhost:6379")
	v.SetDefault("lock.ttl", 30*time.Second)
	v.SetDefault("lock.retry_interval", 50*time.Millisecond)
	v.SetDefault("lock.retry_limit", 100)
	v.SetDefault("migrations_path", "migrations")
}

// Load reads configuration.
// Priority (highest to lowest):
// 1. Environment variables with BILLING_ prefix (e.g., BILLING_LOCK_BACKEND)
// 2. Unprefixed DATABASE_URL, COMPANY_CODE and ALLOWED_ORIGINS
// 3. billing.yaml in the working directory
// 4. Built-in defaults
//
// A .env file is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("billing")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	return load(v)
}

// LoadFile reads configuration from an explicit file path, still honouring
// environment overrides.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.url", "BILLING_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("company_code", "BILLING_COMPANY_CODE", "COMPANY_CODE")
	_ = v.BindEnv("http.allowed_origins", "BILLING_HTTP_ALLOWED_ORIGINS", "ALLOWED_ORIGINS")

	cfg := &Config{
		Database: DatabaseConfig{
			URL:      v.GetString("database.url"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		HTTP: HTTPConfig{
			Addr:           v.GetString("http.addr"),
			AllowedOrigins: v.GetString("http.allowed_origins"),
			MaxBodyBytes:   v.GetInt64("http.max_body_bytes"),
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Lock: LockConfig{
			Backend:       strings.ToLower(v.GetString("lock.backend")),
			RedisAddr:     v.GetString("lock.redis_addr"),
			RedisPassword: v.GetString("lock.redis_password"),
			RedisDB:       v.GetInt("lock.redis_db"),
			TTL:           v.GetDuration("lock.ttl"),
			RetryInterval: v.GetDuration("lock.retry_interval"),
			RetryLimit:    v.GetInt("lock.retry_limit"),
		},
		CompanyCode:    v.GetString("company_code"),
		MigrationsPath: v.GetString("migrations_path"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	switch c.Lock.Backend {
	case "local", "redis":
	default:
		return fmt.Errorf("lock.backend must be local or redis, got %q", c.Lock.Backend)
	}
	if c.Lock.Backend == "redis" && c.Lock.RedisAddr == "" {
		return errors.New("lock.redis_addr is required for the redis lock backend")
	}
	if c.Lock.TTL <= 0 {
		return errors.New("lock.ttl must be positive")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return errors.New("http.max_body_bytes must be positive")
	}
	return nil
}

// RequireDatabase reports a clear error when no database URL was configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable not set")
	}
	return nil
}
