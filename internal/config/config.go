package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config aggregates runtime configuration for the CertVault API.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	Upload   UploadConfig
	Signing  SigningConfig
	Web      WebConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string        `env:"CERTVAULT_API_HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"CERTVAULT_API_PORT" envDefault:"8080"`
	PublicURL    string        `env:"CERTVAULT_PUBLIC_URL" envDefault:"http://localhost:8080"`
	ReadTimeout  time.Duration `env:"CERTVAULT_API_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"CERTVAULT_API_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"CERTVAULT_API_IDLE_TIMEOUT" envDefault:"60s"`
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"certvault_app"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"change-me"`
	Database string `env:"POSTGRES_DB" envDefault:"certvault"`
	SSLMode  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, strings.ToLower(p.SSLMode))
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	AccessKeyID     string `env:"MINIO_ROOT_USER" envDefault:"certvault"`
	SecretAccessKey string `env:"MINIO_ROOT_PASSWORD" envDefault:"change-me-strong-password"`
	Bucket          string `env:"MINIO_BUCKET" envDefault:"certificates"`
	UseSSL          bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	Region          string `env:"MINIO_REGION"`
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	AccessTokenSecret  string        `env:"CERTVAULT_JWT_SECRET" envDefault:"change-me-to-a-32-byte-secret"`
	RefreshTokenSecret string        `env:"CERTVAULT_JWT_REFRESH_SECRET" envDefault:"change-me-to-a-64-byte-secret"`
	AccessTokenTTL     time.Duration `env:"CERTVAULT_AUTH_ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL    time.Duration `env:"CERTVAULT_AUTH_REFRESH_TOKEN_TTL" envDefault:"720h"`
	BcryptCost         int           `env:"CERTVAULT_AUTH_BCRYPT_COST" envDefault:"12"`
}

// UploadConfig bounds what the upload flow accepts.
type UploadConfig struct {
	MaxFileSize  int64         `env:"CERTVAULT_UPLOAD_MAX_BYTES" envDefault:"10485760"`
	AllowedTypes []string      `env:"CERTVAULT_UPLOAD_ALLOWED_TYPES" envSeparator:"," envDefault:"application/pdf,image/jpeg,image/png,image/jpg"`
	LinkTTL      time.Duration `env:"CERTVAULT_UPLOAD_LINK_TTL" envDefault:"8760h"`
}

// SigningConfig controls long-lived signed object links. The secret has no
// default: a guessable one would let anyone mint download links.
type SigningConfig struct {
	Secret string `env:"CERTVAULT_SIGNING_SECRET,required,notEmpty"`
}

// WebConfig controls the dashboard shell.
type WebConfig struct {
	SessionCookie string `env:"CERTVAULT_SESSION_COOKIE" envDefault:"certvault_session"`
	SecureCookies bool   `env:"CERTVAULT_SECURE_COOKIES" envDefault:"false"`
	TimeZone      string `env:"CERTVAULT_TIMEZONE" envDefault:"UTC"`
}

// Location resolves the configured display time zone, falling back to UTC.
func (w WebConfig) Location() *time.Location {
	loc, err := time.LoadLocation(w.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string `env:"CERTVAULT_METRICS_PATH" envDefault:"/metrics"`
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		cfg.Auth.BcryptCost = 12
	}
	if cfg.Upload.MaxFileSize <= 0 {
		return Config{}, fmt.Errorf("upload max bytes must be positive")
	}
	cfg.Server.PublicURL = strings.TrimRight(cfg.Server.PublicURL, "/")

	return cfg, nil
}
