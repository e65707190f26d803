package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	BackendURL     string        `mapstructure:"BACKEND_URL"`
	BackendTimeout time.Duration `mapstructure:"BACKEND_TIMEOUT"`
	BackendRPS     float64       `mapstructure:"BACKEND_RPS"`
	BackendBurst   int           `mapstructure:"BACKEND_BURST"`
	// ConsoleToken is the bearer token CLI commands send to the backend.
	ConsoleToken   string        `mapstructure:"CONSOLE_TOKEN"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer     string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL    string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience   string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	QueryStaleTime time.Duration `mapstructure:"QUERY_STALE_TIME"`
	QueryGCTime    time.Duration `mapstructure:"QUERY_GC_TIME"`
	SearchDebounce time.Duration `mapstructure:"SEARCH_DEBOUNCE"`
	ToastTTL       time.Duration `mapstructure:"TOAST_TTL"`
	DraftTTL       time.Duration `mapstructure:"DRAFT_TTL"`
	OTPCooldown    time.Duration `mapstructure:"OTP_COOLDOWN"`
}

var keys = []string{
	"PORT", "ENV",
	"BACKEND_URL", "BACKEND_TIMEOUT", "BACKEND_RPS", "BACKEND_BURST", "CONSOLE_TOKEN",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"QUERY_STALE_TIME", "QUERY_GC_TIME", "SEARCH_DEBOUNCE", "TOAST_TTL", "DRAFT_TTL", "OTP_COOLDOWN",
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("BACKEND_TIMEOUT", "15s")
	v.SetDefault("BACKEND_RPS", 20)
	v.SetDefault("BACKEND_BURST", 40)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("QUERY_STALE_TIME", "5m")
	v.SetDefault("QUERY_GC_TIME", "10m")
	v.SetDefault("SEARCH_DEBOUNCE", "500ms")
	v.SetDefault("TOAST_TTL", "5s")
	v.SetDefault("DRAFT_TTL", "72h")
	v.SetDefault("OTP_COOLDOWN", "60s")

	for _, k := range keys {
		v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is required")
	}

	if cfg.IsDev() {
		log.Warn().Msg("running in development mode: unauthenticated requests get admin access")
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the console is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsePostgres reports whether wizard drafts are persisted in PostgreSQL rather
// than kept in memory.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute http(s) URL, got %q", c.BackendURL)
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be \"development\", \"staging\", or \"production\", got %q", c.Env)
	}
	if !c.IsDev() && c.AuthSigningKey == "" && c.AuthIssuer == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf(
			"AUTH_SIGNING_KEY, AUTH_ISSUER or AUTH_JWKS_URL must be set outside development (current ENV=%q)", c.Env)
	}
	if c.IsProduction() && c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters in production")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	if c.SearchDebounce < 0 || c.ToastTTL <= 0 || c.QueryStaleTime < 0 {
		return fmt.Errorf("SEARCH_DEBOUNCE, TOAST_TTL and QUERY_STALE_TIME must not be negative")
	}
	if c.QueryGCTime > 0 && c.QueryGCTime < c.QueryStaleTime {
		return fmt.Errorf("QUERY_GC_TIME (%s) must not be shorter than QUERY_STALE_TIME (%s)", c.QueryGCTime, c.QueryStaleTime)
	}
	return nil
}
