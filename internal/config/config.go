package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Platform  PlatformConfig  `yaml:"platform"`
	Apps      map[string]App  `yaml:"apps"`
	Database  DatabaseConfig  `yaml:"database"`
	NATS      NATSConfig      `yaml:"nats"`
	JWT       JWTConfig       `yaml:"jwt"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Proxy     ProxyConfig     `yaml:"proxy"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig represents server identity
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents the HTTP listener configuration
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// PlatformConfig represents platform domain configuration.
// Hosts are matched exactly; suffixes drive subdomain slug extraction.
type PlatformConfig struct {
	RootDomain string   `yaml:"root_domain"`
	Hosts      []string `yaml:"hosts"`
	Suffixes   []string `yaml:"suffixes"`
}

// App represents a downstream application reachable through the proxy
type App struct {
	BaseURL string `yaml:"base_url"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret         string        `yaml:"secret"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
}

// CacheConfig represents the in-process cache configuration
type CacheConfig struct {
	TenantCapacity int           `yaml:"tenant_capacity"`
	TenantTTL      time.Duration `yaml:"tenant_ttl"`
	TokenCapacity  int           `yaml:"token_capacity"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
}

// RateLimitConfig represents the auth rate limiter configuration
type RateLimitConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	Window          time.Duration `yaml:"window"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// ProxyConfig represents proxy engine configuration
type ProxyConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MountPath string        `yaml:"mount_path"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Apply environment overrides
	cfg.applyEnvOverrides()

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}

	if rootDomain := os.Getenv("PLATFORM_DOMAIN"); rootDomain != "" {
		c.Platform.RootDomain = rootDomain
	}
}

// setDefaults fills unset fields with defaults
func (c *Config) setDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}

	if c.Cache.TenantCapacity == 0 {
		c.Cache.TenantCapacity = 100
	}
	if c.Cache.TenantTTL == 0 {
		c.Cache.TenantTTL = 5 * time.Minute
	}
	if c.Cache.TokenCapacity == 0 {
		c.Cache.TokenCapacity = 1000
	}
	if c.Cache.TokenTTL == 0 {
		c.Cache.TokenTTL = 5 * time.Minute
	}
	if c.Cache.SweepInterval == 0 {
		c.Cache.SweepInterval = time.Minute
	}

	if c.RateLimit.MaxAttempts == 0 {
		c.RateLimit.MaxAttempts = 5
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = 15 * time.Minute
	}
	if c.RateLimit.CleanupInterval == 0 {
		c.RateLimit.CleanupInterval = time.Minute
	}

	if c.Proxy.Timeout == 0 {
		c.Proxy.Timeout = 30 * time.Second
	}
	if c.Proxy.MountPath == "" {
		c.Proxy.MountPath = "/apps"
	}

	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = 24 * time.Hour
	}

	// The root domain and its www alias are always platform hosts
	if c.Platform.RootDomain != "" {
		c.Platform.Hosts = appendUnique(c.Platform.Hosts, c.Platform.RootDomain)
		c.Platform.Hosts = appendUnique(c.Platform.Hosts, "www."+c.Platform.RootDomain)
		c.Platform.Suffixes = appendUnique(c.Platform.Suffixes, "."+c.Platform.RootDomain)
	}
	c.Platform.Hosts = appendUnique(c.Platform.Hosts, "localhost")
	c.Platform.Suffixes = appendUnique(c.Platform.Suffixes, ".localhost")
}

// validate checks required fields
func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.Platform.RootDomain == "" {
		return fmt.Errorf("platform root domain is required")
	}
	for name, app := range c.Apps {
		if app.BaseURL == "" {
			return fmt.Errorf("app %q: base_url is required", name)
		}
		if !strings.HasPrefix(app.BaseURL, "http://") && !strings.HasPrefix(app.BaseURL, "https://") {
			return fmt.Errorf("app %q: base_url must be an absolute http(s) URL", name)
		}
	}
	return nil
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
