// Package config loads service configuration from defaults, an optional
// config.yaml, a .env file and PANTRY_* environment variables, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "PANTRY"

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	AI        AIConfig        `mapstructure:"ai"`
	Lock      LockConfig      `mapstructure:"lock"`
	Events    EventsConfig    `mapstructure:"events"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// Driver is one of memory, sqlite or postgres.
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type AIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type LockConfig struct {
	// Driver is memory (single process) or redis (shared across replicas).
	Driver        string        `mapstructure:"driver"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type EventsConfig struct {
	QueueSize      int           `mapstructure:"queue_size"`
	Concurrency    int           `mapstructure:"concurrency"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
	// KafkaBrokers is a comma separated list; empty disables forwarding.
	KafkaBrokers string `mapstructure:"kafka_brokers"`
	KafkaTopic   string `mapstructure:"kafka_topic"`
}

type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type RateLimitConfig struct {
	GeneratePerMinute float64       `mapstructure:"generate_per_minute"`
	GenerateBurst     int           `mapstructure:"generate_burst"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`
}

// Load reads configuration. configPath may be empty, in which case
// config.yaml is looked up in the working directory and ./config.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pantry")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "pantry.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pantry")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "pantry")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "pantry")
	v.SetDefault("auth.token_ttl", "72h")

	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.temperature", 0.8)
	v.SetDefault("ai.timeout", "60s")

	v.SetDefault("lock.driver", "memory")
	v.SetDefault("lock.redis_addr", "localhost:6379")
	v.SetDefault("lock.redis_password", "")
	v.SetDefault("lock.redis_db", 0)
	v.SetDefault("lock.ttl", "30s")

	v.SetDefault("events.queue_size", 1024)
	v.SetDefault("events.concurrency", 16)
	v.SetDefault("events.handler_timeout", "30s")
	v.SetDefault("events.kafka_brokers", "")
	v.SetDefault("events.kafka_topic", "pantry.events")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sample_ratio", 1.0)

	v.SetDefault("rate_limit.generate_per_minute", 10)
	v.SetDefault("rate_limit.generate_burst", 3)
	v.SetDefault("rate_limit.idle_ttl", "10m")
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return errors.New("app.name is required")
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	switch c.Database.Driver {
	case "memory":
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return errors.New("database.host and database.name are required for postgres")
		}
	default:
		return fmt.Errorf("database.driver %q is not one of memory, sqlite, postgres", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	switch c.Lock.Driver {
	case "memory":
	case "redis":
		if c.Lock.RedisAddr == "" {
			return errors.New("lock.redis_addr is required for redis")
		}
		if c.Lock.TTL <= 0 {
			return errors.New("lock.ttl must be positive")
		}
	default:
		return fmt.Errorf("lock.driver %q is not one of memory, redis", c.Lock.Driver)
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return errors.New("ai.temperature must be within [0, 2]")
	}
	if c.Events.KafkaBrokers != "" && c.Events.KafkaTopic == "" {
		return errors.New("events.kafka_topic is required when kafka_brokers is set")
	}
	if c.RateLimit.GeneratePerMinute <= 0 || c.RateLimit.GenerateBurst <= 0 {
		return errors.New("rate_limit.generate_per_minute and generate_burst must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.App.Environment == "production" }

// DSN returns the driver specific connection string.
func (c *Config) DSN() string {
	switch c.Database.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password,
			c.Database.Name, c.Database.SSLMode)
	default:
		return c.Database.Path
	}
}

func (e EventsConfig) Brokers() []string {
	var out []string
	for _, b := range strings.Split(e.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
