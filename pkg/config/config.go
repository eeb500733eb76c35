package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"UsagePrep/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Refresh struct {
		Interval        time.Duration `yaml:"interval" default:"5m" validate:"gt=0"`
		WindowBuckets   int           `yaml:"window_buckets" default:"3" validate:"gte=1"`
		RetryAttempts   int           `yaml:"retry_attempts" default:"3" validate:"gte=1"`
		RetryBackoffMin time.Duration `yaml:"retry_backoff_min" default:"500ms"`
		RetryBackoffMax time.Duration `yaml:"retry_backoff_max" default:"5s"`
	} `yaml:"refresh"`
	Forex struct {
		Pairs   []string `yaml:"pairs" validate:"min=1,dive,required"`
		EMAFast int      `yaml:"ema_fast" default:"8" validate:"gt=0"`
		EMASlow int      `yaml:"ema_slow" default:"21" validate:"gt=0"`
		ATRFast int      `yaml:"atr_fast" default:"8" validate:"gt=0"`
		ATRSlow int      `yaml:"atr_slow" default:"21" validate:"gt=0"`
	} `yaml:"forex"`
	Usage struct {
		DataRatePerGB   float64 `yaml:"data_rate_per_gb" default:"49" validate:"gte=0"`
		VoiceRatePerMin float64 `yaml:"voice_rate_per_min" default:"1" validate:"gte=0"`
		BytesPerGB      float64 `yaml:"bytes_per_gb" default:"1000000000" validate:"gt=0"`
	} `yaml:"usage"`
	Sessions struct {
		IdleGap         time.Duration `yaml:"idle_gap" default:"10m" validate:"gt=0"`
		MinInteractions int           `yaml:"min_interactions" default:"3" validate:"gte=1"`
	} `yaml:"sessions"`
	Balance struct {
		RatePair1   string  `yaml:"rate_pair_1" default:"WAKMRV"`
		RatePair2   string  `yaml:"rate_pair_2" default:"MRVZAR"`
		DefaultRate float64 `yaml:"default_rate" default:"1" validate:"gt=0"`
	} `yaml:"balance"`
	Postgres struct {
		Host         string        `yaml:"host" default:"localhost" validate:"required"`
		Port         int           `yaml:"port" default:"5432" validate:"gt=0"`
		Database     string        `yaml:"database" default:"analytics" validate:"required"`
		User         string        `yaml:"user" default:"postgres"`
		Password     string        `yaml:"password"`
		SSLMode      string        `yaml:"ssl_mode" default:"disable"`
		MaxOpenConns int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns int           `yaml:"max_idle_conns" default:"5"`
		ConnLifetime time.Duration `yaml:"conn_lifetime" default:"5m"`
		ConnTimeout  time.Duration `yaml:"conn_timeout" default:"5s"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" default:"localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"10m"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"prepared.cycle.events"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	} `yaml:"kafka"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
}

// Load reads and parses a YAML configuration file, applies defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if len(c.Forex.Pairs) == 0 {
		c.Forex.Pairs = []string{"WAKMRV", "MRVZAR"}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		c.Postgres.Port = util.ParseIntDefault(v, c.Postgres.Port)
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		c.Postgres.Database = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		c.Postgres.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FOREX_PAIRS"); v != "" {
		c.Forex.Pairs = strings.Split(v, ",")
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Refresh.RetryBackoffMin > c.Refresh.RetryBackoffMax {
		return fmt.Errorf("refresh.retry_backoff_min must be <= retry_backoff_max")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka.enabled")
	}
	return nil
}
