package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// RedisConfig configures the plan cache. An empty URL disables caching.
type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type BillingConfig struct {
	Currency       string          `yaml:"currency"`
	ApplicationFee decimal.Decimal `yaml:"application_fee"`
}

// EntitlementsConfig switches quota enforcement per action.
type EntitlementsConfig struct {
	EnforceJobPosts     *bool `yaml:"enforce_job_posts"`
	EnforceApplications *bool `yaml:"enforce_applications"`
}

func (e EntitlementsConfig) JobPostsEnforced() bool {
	return e.EnforceJobPosts == nil || *e.EnforceJobPosts
}

func (e EntitlementsConfig) ApplicationsEnforced() bool {
	return e.EnforceApplications == nil || *e.EnforceApplications
}

type SchedulerConfig struct {
	ExpirySweepInterval time.Duration `yaml:"expiry_sweep_interval"` // 0 disables the sweep
	PoolStatsInterval   time.Duration `yaml:"pool_stats_interval"`
}

type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Log          LogConfig          `yaml:"log"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Auth         AuthConfig         `yaml:"auth"`
	Billing      BillingConfig      `yaml:"billing"`
	Entitlements EntitlementsConfig `yaml:"entitlements"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

var defaultApplicationFee = decimal.RequireFromString("50.00")

// LoadConfig reads the YAML file at path. A .env file next to the process is
// loaded first when present, and ${VAR} references in the YAML are expanded
// from the environment.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse expands environment references in raw YAML, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.RequestTimeout <= 0 {
		c.HTTP.RequestTimeout = 15 * time.Second
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.Redis.TTL = normalizeTTL(c.Redis.TTL)
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "jobboard"
	}
	if c.Billing.Currency == "" {
		c.Billing.Currency = "ETB"
	}
	if c.Billing.ApplicationFee.IsZero() {
		c.Billing.ApplicationFee = defaultApplicationFee
	}
	if c.Scheduler.PoolStatsInterval <= 0 {
		c.Scheduler.PoolStatsInterval = 15 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Billing.ApplicationFee.IsNegative() {
		return errors.New("billing.application_fee must not be negative")
	}
	if c.Scheduler.ExpirySweepInterval < 0 {
		return errors.New("scheduler.expiry_sweep_interval must not be negative")
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
