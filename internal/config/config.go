package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PlaceholderSecret is the jwt_secret shipped in config/config.yaml.
const PlaceholderSecret = "change-me"

var (
	ErrNoJWTSecret       = errors.New("jwt secret not configured")
	ErrPlaceholderSecret = errors.New("jwt secret is the shipped placeholder, set JWT_SECRET")
	ErrNoPostgres        = errors.New("postgres url not configured, set POSTGRES_URL")
)

type Config struct {
	Server struct {
		Port            string   `yaml:"port"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
		ShutdownTimeout string   `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		LockTTL  string `yaml:"lock_ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL          string `yaml:"ttl"`
		TickInterval string `yaml:"tick_interval"`
	} `yaml:"quiz"`
	RabbitMQ struct {
		URL string `yaml:"url"`
	} `yaml:"rabbitmq"`
	Storage struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
		PublicURL string `yaml:"public_url"`
	} `yaml:"storage"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file is not an error; the environment alone can configure the service.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// ValidateSecret rejects a missing or placeholder signing secret.
func (c Config) ValidateSecret() error {
	switch strings.TrimSpace(c.Auth.JWTSecret) {
	case "":
		return ErrNoJWTSecret
	case PlaceholderSecret:
		return ErrPlaceholderSecret
	}
	return nil
}

// RequirePostgres fails when no durable store is configured.
func (c Config) RequirePostgres() error {
	if strings.TrimSpace(c.Postgres.URL) == "" {
		return ErrNoPostgres
	}
	return nil
}

func applyEnv(cfg *Config) {
	override(&cfg.Auth.JWTSecret, "JWT_SECRET")
	override(&cfg.Auth.Issuer, "JWT_ISSUER")
	override(&cfg.Postgres.URL, "POSTGRES_URL")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.RabbitMQ.URL, "RABBITMQ_URL")
	override(&cfg.Storage.Endpoint, "MINIO_ENDPOINT")
	override(&cfg.Storage.AccessKey, "MINIO_ACCESS_KEY")
	override(&cfg.Storage.SecretKey, "MINIO_SECRET_KEY")
	override(&cfg.Storage.Bucket, "MINIO_BUCKET")
	override(&cfg.Log.Level, "LOG_LEVEL")
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = strings.Split(origins, ",")
	}
}

func override(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
