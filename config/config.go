package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Ably     AblyConfig     `mapstructure:"ably"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Cache    CacheConfig    `mapstructure:"cache"`
	PDF      PDFConfig      `mapstructure:"pdf"`
	Log      LogConfig      `mapstructure:"log"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type AppConfig struct {
	Name    string `mapstructure:"name" validate:"required"`
	Env     string `mapstructure:"env" validate:"oneof=development test staging production"`
	Debug   bool   `mapstructure:"debug"`
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// 每个客户端 IP 的令牌桶
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" validate:"gte=0"`
}

type DatabaseConfig struct {
	Driver       string        `mapstructure:"driver" validate:"required,oneof=postgres mysql sqlite"`
	DSN          string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
	AutoMigrate  bool          `mapstructure:"auto_migrate"`
	LogLevel     string        `mapstructure:"log_level" validate:"oneof=silent error warn info"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret" validate:"required,min=32"`
	Issuer string `mapstructure:"issuer"`
}

type AblyConfig struct {
	// key_name:key_secret
	APIKey   string        `mapstructure:"api_key"`
	TokenTTL time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
}

type StorageConfig struct {
	Driver     string        `mapstructure:"driver" validate:"oneof=local gcs"`
	LocalRoot  string        `mapstructure:"local_root"`
	GCSBucket  string        `mapstructure:"gcs_bucket" validate:"required_if=Driver gcs"`
	SigningKey string        `mapstructure:"signing_key" validate:"required,min=16"`
	LinkTTL    time.Duration `mapstructure:"link_ttl" validate:"gt=0"`
}

type CacheConfig struct {
	HomeTTL          time.Duration `mapstructure:"home_ttl"`
	CategoryStatsTTL time.Duration `mapstructure:"category_stats_ttl"`
	CategoriesTTL    time.Duration `mapstructure:"categories_ttl"`
	LegalTTL         time.Duration `mapstructure:"legal_ttl"`
}

type PDFConfig struct {
	DefaultMaxDownloads int `mapstructure:"default_max_downloads" validate:"gt=0"`
	// 0 表示不过期
	DefaultAccessDays int `mapstructure:"default_access_days" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type SentryConfig struct {
	DSN              string  `mapstructure:"dsn"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate" validate:"gte=0,lte=1"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool { return c.App.Env == "production" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "classifieds-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.base_url", "http://localhost:8080")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.rate_limit_burst", 40)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=classifieds port=5432 sslmode=disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "classifieds")

	v.SetDefault("ably.api_key", "")
	v.SetDefault("ably.token_ttl", time.Hour)

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_root", "./storage")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.signing_key", "")
	v.SetDefault("storage.link_ttl", 15*time.Minute)

	v.SetDefault("cache.home_ttl", 5*time.Minute)
	v.SetDefault("cache.category_stats_ttl", 30*time.Minute)
	v.SetDefault("cache.categories_ttl", 30*time.Minute)
	v.SetDefault("cache.legal_ttl", 24*time.Hour)

	v.SetDefault("pdf.default_max_downloads", 5)
	v.SetDefault("pdf.default_access_days", 365)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.traces_sample_rate", 0.0)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", "classifieds-api")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// Load 读取 config.yaml（可选）并以 APP_ 前缀环境变量覆盖
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
