package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// insecureDefaultSecret is the placeholder shipped in config.yml. It is only
// accepted when the server runs in debug mode.
const insecureDefaultSecret = "change-me-jwt-secret"

type Config struct {
	Server struct {
		Port            string        `mapstructure:"port"`
		Debug           bool          `mapstructure:"debug"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
		FrontendURL     string        `mapstructure:"frontend_url"`
	} `mapstructure:"server"`
	Database struct {
		Host           string `mapstructure:"host"`
		Port           int    `mapstructure:"port"`
		User           string `mapstructure:"user"`
		Password       string `mapstructure:"password"`
		Name           string `mapstructure:"name"`
		SSLMode        string `mapstructure:"sslmode"`
		MaxOpenConns   int    `mapstructure:"max_open_conns"`
		MaxIdleConns   int    `mapstructure:"max_idle_conns"`
		MigrationsPath string `mapstructure:"migrations_path"`
		AutoMigrate    bool   `mapstructure:"auto_migrate"`
	} `mapstructure:"database"`
	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	JWT struct {
		SecretKey        string `mapstructure:"secret_key"`
		Algorithm        string `mapstructure:"algorithm"`
		AccessTTLMinutes int    `mapstructure:"access_ttl_minutes"`
		RefreshTTLDays   int    `mapstructure:"refresh_ttl_days"`
	} `mapstructure:"jwt"`
	Tokens struct {
		EmailVerificationTTLHours int `mapstructure:"email_verification_ttl_hours"`
		PasswordResetTTLHours     int `mapstructure:"password_reset_ttl_hours"`
	} `mapstructure:"tokens"`
	Password struct {
		MemoryKB      uint32 `mapstructure:"memory_kb"`
		Time          uint32 `mapstructure:"time"`
		Parallelism   uint8  `mapstructure:"parallelism"`
		SaltLength    uint32 `mapstructure:"salt_length"`
		KeyLength     uint32 `mapstructure:"key_length"`
		MaxConcurrent int64  `mapstructure:"max_concurrent"`
	} `mapstructure:"password"`
	Limits struct {
		Window      time.Duration `mapstructure:"window"`
		MaxRequests int           `mapstructure:"max_requests"`
	} `mapstructure:"limits"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// AccessTTL is the lifetime of an access token and its cookie.
func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWT.AccessTTLMinutes) * time.Minute
}

// RefreshTTL is the lifetime of a refresh token and its cookie.
func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWT.RefreshTTLDays) * 24 * time.Hour
}

func (c Config) EmailVerificationTTL() time.Duration {
	return time.Duration(c.Tokens.EmailVerificationTTLHours) * time.Hour
}

func (c Config) PasswordResetTTL() time.Duration {
	return time.Duration(c.Tokens.PasswordResetTTLHours) * time.Hour
}

// DatabaseURL renders the postgres connection URL used by lib/pq and golang-migrate.
func (c Config) DatabaseURL() string {
	db := c.Database
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.User, db.Password, db.Host, db.Port, db.Name, db.SSLMode)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.frontend_url", "http://localhost:8000")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "lifecurriculum")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.migrations_path", "db/migrations")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.access_ttl_minutes", 15)
	v.SetDefault("jwt.refresh_ttl_days", 7)

	v.SetDefault("tokens.email_verification_ttl_hours", 24)
	v.SetDefault("tokens.password_reset_ttl_hours", 1)

	v.SetDefault("password.memory_kb", 64*1024)
	v.SetDefault("password.time", 3)
	v.SetDefault("password.parallelism", 2)
	v.SetDefault("password.salt_length", 16)
	v.SetDefault("password.key_length", 32)
	v.SetDefault("password.max_concurrent", 4)

	v.SetDefault("limits.window", time.Hour)
	v.SetDefault("limits.max_requests", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads config.yml from path (when present) and overlays environment
// variables such as JWT_SECRET_KEY or DATABASE_HOST.
func Load(path string) (Config, error) {
	var cfg Config

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the auth core cannot run with.
func (c Config) Validate() error {
	if c.JWT.SecretKey == "" {
		return errors.New("jwt.secret_key must be set")
	}
	if c.JWT.SecretKey == insecureDefaultSecret && !c.Server.Debug {
		return errors.New("jwt.secret_key uses the placeholder value outside debug mode")
	}
	switch c.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported jwt.algorithm %q", c.JWT.Algorithm)
	}
	if c.JWT.AccessTTLMinutes <= 0 || c.JWT.RefreshTTLDays <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Tokens.EmailVerificationTTLHours <= 0 || c.Tokens.PasswordResetTTLHours <= 0 {
		return errors.New("one-time token TTLs must be positive")
	}
	if c.Password.MaxConcurrent <= 0 {
		return errors.New("password.max_concurrent must be positive")
	}
	if c.Limits.Window <= 0 {
		return errors.New("limits.window must be positive")
	}
	if c.Limits.MaxRequests <= 0 {
		return errors.New("limits.max_requests must be positive")
	}
	return nil
}
