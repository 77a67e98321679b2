// Package config loads process configuration from the environment (with an
// optional .env file) and report settings from an optional YAML overlay.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"homefolio/pkg/logger"
)

// Operation names used as rate-limit keys.
const (
	OpPropertyReport = "property-report"
	OpSessionReport  = "session-report"
)

// Mortgage holds the constants behind the estimated monthly payment line.
type Mortgage struct {
	AnnualRate       float64 `yaml:"annual_rate"`
	TermYears        int     `yaml:"term_years"`
	DownPayment      float64 `yaml:"down_payment"`
	TaxRate          float64 `yaml:"tax_rate"`
	MonthlyInsurance float64 `yaml:"monthly_insurance"`
}

// Limit is one rate-limit rule.
type Limit struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// Branding controls the running header and footer.
type Branding struct {
	ProductName string `yaml:"product_name"`
	Color       string `yaml:"color"`
	LogoURL     string `yaml:"logo_url"`
}

// Settings are the report business constants. They can be overridden from
// the YAML file named by REPORT_SETTINGS_FILE.
type Settings struct {
	Mortgage     Mortgage         `yaml:"mortgage"`
	Limits       map[string]Limit `yaml:"limits"`
	Branding     Branding         `yaml:"branding"`
	FetchTimeout time.Duration    `yaml:"fetch_timeout"`
	FetchMaxSize int64            `yaml:"fetch_max_bytes"`
	SignedURLTTL time.Duration    `yaml:"signed_url_ttl"`
}

// Config is the full runtime configuration.
type Config struct {
	Port string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	DBSSLMode  string

	StoreBackend       string
	FirestoreProjectID string

	RateLimitBackend  string
	RateLimitFailOpen bool

	StorageBackend string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	GCSBucket      string

	JWTSecret      string
	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For / X-Real-IP. Empty means the
	// socket address is always the client.
	TrustedProxies []string

	Settings Settings
}

// DefaultSettings returns the built-in report constants.
func DefaultSettings() Settings {
	return Settings{
		Mortgage: Mortgage{
			AnnualRate:       0.07,
			TermYears:        30,
			DownPayment:      0.20,
			TaxRate:          0.012,
			MonthlyInsurance: 150,
		},
		Limits: map[string]Limit{
			OpPropertyReport: {MaxRequests: 20, Window: time.Hour},
			OpSessionReport:  {MaxRequests: 10, Window: time.Hour},
		},
		Branding: Branding{
			ProductName: "HomeFolio",
			Color:       "#1F4E79",
		},
		FetchTimeout: 10 * time.Second,
		FetchMaxSize: 25 << 20,
		SignedURLTTL: time.Minute,
	}
}

// GetEnv reads an environment variable or returns a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		logger.Sugar.Warnf("Ignoring invalid boolean %s=%q", key, v)
		return fallback
	}
	return b
}

func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(GetEnv(key, ""), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Load reads .env (if any), the environment, and the settings overlay.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	cfg := &Config{
		Port:               GetEnv("PORT", "8080"),
		DBUser:             GetEnv("DB_USER", "postgres"),
		DBPassword:         GetEnv("DB_PASSWORD", ""),
		DBHost:             GetEnv("DB_HOST", "localhost"),
		DBPort:             GetEnv("DB_PORT", "5432"),
		DBName:             GetEnv("DB_NAME", "homefolio"),
		DBSSLMode:          GetEnv("DB_SSLMODE", "require"),
		StoreBackend:       GetEnv("STORE_BACKEND", "postgres"),
		FirestoreProjectID: GetEnv("FIRESTORE_PROJECT_ID", ""),
		RateLimitBackend:   GetEnv("RATE_LIMIT_BACKEND", "memory"),
		RateLimitFailOpen:  getBool("RATE_LIMIT_FAIL_OPEN", true),
		StorageBackend:     GetEnv("STORAGE_BACKEND", "s3"),
		S3Bucket:           GetEnv("S3_BUCKET", ""),
		S3Region:           GetEnv("S3_REGION", "us-east-1"),
		S3Endpoint:         GetEnv("S3_ENDPOINT", ""),
		S3AccessKey:        GetEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:        GetEnv("S3_SECRET_KEY", ""),
		GCSBucket:          GetEnv("GCS_BUCKET", ""),
		JWTSecret:          GetEnv("JWT_SECRET", ""),
		Settings:           DefaultSettings(),
	}
	cfg.AllowedOrigins = getList("CORS_ALLOWED_ORIGINS")
	cfg.TrustedProxies = getList("TRUSTED_PROXIES")

	if path := GetEnv("REPORT_SETTINGS_FILE", ""); path != "" {
		if err := cfg.Settings.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if logo := GetEnv("BRAND_LOGO_URL", ""); logo != "" {
		cfg.Settings.Branding.LogoURL = logo
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto s. Keys absent from the file
// keep their current values.
func (s *Settings) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings file %s: %w", path, err)
	}
	return s.Overlay(data)
}

// Overlay applies YAML-encoded settings onto s.
func (s *Settings) Overlay(data []byte) error {
	limits := s.Limits
	s.Limits = nil
	if err := yaml.Unmarshal(data, s); err != nil {
		s.Limits = limits
		return fmt.Errorf("parse settings: %w", err)
	}
	// Per-operation limits merge instead of replacing the whole map.
	for op, l := range s.Limits {
		if limits == nil {
			limits = make(map[string]Limit)
		}
		limits[op] = l
	}
	s.Limits = limits
	return nil
}

// Validate rejects settings the report pipeline cannot work with.
func (c *Config) Validate() error {
	m := c.Settings.Mortgage
	if m.TermYears <= 0 {
		return fmt.Errorf("mortgage term_years must be positive, got %d", m.TermYears)
	}
	if m.AnnualRate < 0 || m.DownPayment < 0 || m.DownPayment >= 1 {
		return fmt.Errorf("mortgage rate/down payment out of range")
	}
	for op, l := range c.Settings.Limits {
		if l.MaxRequests <= 0 || l.Window <= 0 {
			return fmt.Errorf("rate limit %q needs positive max_requests and window", op)
		}
	}
	switch c.StoreBackend {
	case "postgres":
	case "firestore":
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID must be set for the firestore store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.RateLimitBackend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimitBackend)
	}
	switch c.StorageBackend {
	case "s3", "gcs":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

// DSN builds the Postgres connection URL with credentials escaped.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}
