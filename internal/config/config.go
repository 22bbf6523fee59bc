package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Redis      RedisConfig
	NATS       NATSConfig
	JWT        JWTConfig
	Upload     UploadConfig
	Storage    StorageConfig
	RateLimit  RateLimitConfig
	Stripe     StripeConfig
	Extraction ExtractionConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	CORSAllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL     string
	Enabled bool
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// UploadConfig bounds individual uploads. MaxFileSizeMB is the absolute
// per-file ceiling and applies to every plan.
type UploadConfig struct {
	MaxFileSizeMB int64
	LocalDir      string
}

func (c UploadConfig) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

// StorageConfig selects the artifact store backend: "local" or "s3".
type StorageConfig struct {
	Backend     string
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Prefix    string
	S3PathStyle bool
}

// RateLimitConfig selects the request-rate backend: "postgres" or "redis".
// AuthPerMinute bounds unauthenticated /auth traffic per client IP.
type RateLimitConfig struct {
	Backend       string
	AuthPerMinute int
}

type StripeConfig struct {
	SecretKey         string
	WebhookSecret     string
	PriceIDPro        string
	PriceIDEnterprise string
	SuccessURL        string
	CancelURL         string
}

func (c StripeConfig) CheckoutConfigured() bool {
	return c.SecretKey != "" && c.PriceIDPro != "" && c.SuccessURL != "" && c.CancelURL != ""
}

type ExtractionConfig struct {
	Enabled      bool
	GeminiAPIKey string
	GeminiModel  string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:               k.String("server.host"),
			Port:               k.Int("server.port"),
			CORSAllowedOrigins: splitCSV(k.String("server.cors.origins")),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL:     k.String("nats.url"),
			Enabled: k.Bool("nats.enabled"),
		},
		JWT: JWTConfig{
			AccessSecret:  k.String("jwt.access.secret"),
			RefreshSecret: k.String("jwt.refresh.secret"),
		},
		Upload: UploadConfig{
			MaxFileSizeMB: k.Int64("upload.max.file.mb"),
			LocalDir:      k.String("upload.dir"),
		},
		Storage: StorageConfig{
			Backend:     k.String("storage.backend"),
			S3Endpoint:  k.String("storage.s3.endpoint"),
			S3Region:    k.String("storage.s3.region"),
			S3AccessKey: k.String("storage.s3.access.key"),
			S3SecretKey: k.String("storage.s3.secret.key"),
			S3Bucket:    k.String("storage.s3.bucket"),
			S3Prefix:    k.String("storage.s3.prefix"),
			S3PathStyle: k.Bool("storage.s3.path.style"),
		},
		RateLimit: RateLimitConfig{
			Backend:       k.String("ratelimit.backend"),
			AuthPerMinute: k.Int("ratelimit.auth.per.minute"),
		},
		Stripe: StripeConfig{
			SecretKey:         k.String("stripe.secret.key"),
			WebhookSecret:     k.String("stripe.webhook.secret"),
			PriceIDPro:        k.String("stripe.price.id.pro"),
			PriceIDEnterprise: k.String("stripe.price.id.enterprise"),
			SuccessURL:        k.String("stripe.success.url"),
			CancelURL:         k.String("stripe.cancel.url"),
		},
		Extraction: ExtractionConfig{
			Enabled:      k.Bool("extraction.enabled"),
			GeminiAPIKey: k.String("gemini.api.key"),
			GeminiModel:  k.String("gemini.model"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "leasedesk"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "leasedesk"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.Upload.MaxFileSizeMB == 0 {
		cfg.Upload.MaxFileSizeMB = 50
	}
	if cfg.Upload.LocalDir == "" {
		cfg.Upload.LocalDir = "./uploads"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.S3Prefix == "" {
		cfg.Storage.S3Prefix = "artifacts"
	}
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "postgres"
	}
	if cfg.RateLimit.AuthPerMinute == 0 {
		cfg.RateLimit.AuthPerMinute = 20
	}
	if cfg.Extraction.GeminiModel == "" {
		cfg.Extraction.GeminiModel = "gemini-2.5-pro"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	accessExpStr := k.String("jwt.access.expiry")
	if accessExpStr == "" {
		accessExpStr = "2h"
	}
	cfg.JWT.AccessExpiry, err = time.ParseDuration(accessExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt access expiry: %w", err)
	}

	refreshExpStr := k.String("jwt.refresh.expiry")
	if refreshExpStr == "" {
		refreshExpStr = "168h"
	}
	cfg.JWT.RefreshExpiry, err = time.ParseDuration(refreshExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt refresh expiry: %w", err)
	}

	return cfg, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
