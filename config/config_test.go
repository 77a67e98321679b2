package config

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		StoreBackend:     "postgres",
		RateLimitBackend: "memory",
		StorageBackend:   "s3",
		Settings:         DefaultSettings(),
	}
}

func TestOverlayMergesLimits(t *testing.T) {
	s := DefaultSettings()
	err := s.Overlay([]byte(`
mortgage:
  annual_rate: 0.065
limits:
  session-report:
    max_requests: 3
    window: 10m
branding:
  color: "#336699"
`))
	require.NoError(t, err)

	assert.Equal(t, 0.065, s.Mortgage.AnnualRate)
	assert.Equal(t, 30, s.Mortgage.TermYears)
	assert.Equal(t, Limit{MaxRequests: 3, Window: 10 * time.Minute}, s.Limits[OpSessionReport])
	assert.Equal(t, Limit{MaxRequests: 20, Window: time.Hour}, s.Limits[OpPropertyReport])
	assert.Equal(t, "#336699", s.Branding.Color)
	assert.Equal(t, "HomeFolio", s.Branding.ProductName)
}

func TestOverlayRejectsBadYAML(t *testing.T) {
	s := DefaultSettings()
	err := s.Overlay([]byte("limits: [oops"))
	require.Error(t, err)
	assert.Len(t, s.Limits, 2)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch_timeout: 3s\n"), 0o600))

	s := DefaultSettings()
	require.NoError(t, s.LoadFile(path))
	assert.Equal(t, 3*time.Second, s.FetchTimeout)

	assert.Error(t, s.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero term", func(c *Config) { c.Settings.Mortgage.TermYears = 0 }, true},
		{"full down payment", func(c *Config) { c.Settings.Mortgage.DownPayment = 1 }, true},
		{"bad limit", func(c *Config) { c.Settings.Limits[OpPropertyReport] = Limit{MaxRequests: 0, Window: time.Hour} }, true},
		{"firestore without project", func(c *Config) { c.StoreBackend = "firestore" }, true},
		{"firestore with project", func(c *Config) { c.StoreBackend = "firestore"; c.FirestoreProjectID = "demo" }, false},
		{"unknown store", func(c *Config) { c.StoreBackend = "mongo" }, true},
		{"unknown limiter", func(c *Config) { c.RateLimitBackend = "redis" }, true},
		{"gcs", func(c *Config) { c.StorageBackend = "gcs" }, false},
		{"unknown storage", func(c *Config) { c.StorageBackend = "azure" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	c := &Config{DBUser: "app", DBPassword: "pw", DBHost: "db", DBPort: "5432", DBName: "homefolio", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://app:pw@db:5432/homefolio?sslmode=disable", c.DSN())
}

func TestDSNEscapesCredentials(t *testing.T) {
	c := &Config{DBUser: "app", DBPassword: "p@ss/w:rd", DBHost: "db", DBPort: "5432", DBName: "homefolio", DBSSLMode: "require"}

	u, err := url.Parse(c.DSN())
	require.NoError(t, err)
	assert.Equal(t, "app", u.User.Username())
	pw, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "p@ss/w:rd", pw)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "/homefolio", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("RATE_LIMIT_FAIL_OPEN", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("BRAND_LOGO_URL", "https://cdn.example.com/logo.png")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.RateLimitFailOpen)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "https://cdn.example.com/logo.png", cfg.Settings.Branding.LogoURL)
	assert.Empty(t, cfg.TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.TrustedProxies)
}
