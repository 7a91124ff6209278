package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	ArmoryBaseURL   string        `mapstructure:"ARMORY_BASE_URL"`
	ItemURLTemplate string        `mapstructure:"ITEM_URL_TEMPLATE"`
	UserAgent       string        `mapstructure:"USER_AGENT"`
	AcceptLanguage  string        `mapstructure:"ACCEPT_LANGUAGE"`
	FetchTimeout    time.Duration `mapstructure:"FETCH_TIMEOUT"`
	Proxies         string        `mapstructure:"PROXIES"`

	PageCacheBackend string `mapstructure:"PAGE_CACHE_BACKEND"`
	ItemCacheBackend string `mapstructure:"ITEM_CACHE_BACKEND"`
	SQLitePath       string `mapstructure:"SQLITE_PATH"`
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int    `mapstructure:"REDIS_DB"`
	PostgresURL      string `mapstructure:"POSTGRES_URL"`

	PageCacheTTLMinutes int  `mapstructure:"PAGE_CACHE_TTL_MINUTES"`
	ItemCacheTTLDays    int  `mapstructure:"ITEM_CACHE_TTL_DAYS"`
	EnableItemLookup    bool `mapstructure:"ENABLE_ITEM_LOOKUP"`

	DefaultRealm    string        `mapstructure:"DEFAULT_REALM"`
	RenderBackend   string        `mapstructure:"RENDER_BACKEND"`
	IconConcurrency int           `mapstructure:"ICON_CONCURRENCY"`
	IconTimeout     time.Duration `mapstructure:"ICON_TIMEOUT"`
	ChromePath      string        `mapstructure:"CHROME_PATH"`
	RenderTimeout   time.Duration `mapstructure:"RENDER_TIMEOUT"`

	CommandWorkers   int           `mapstructure:"COMMAND_WORKERS"`
	CommandQueueSize int           `mapstructure:"COMMAND_QUEUE_SIZE"`
	CommandTimeout   time.Duration `mapstructure:"COMMAND_TIMEOUT"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// A missing .env is fine; production config comes from the environment.
	_ = v.ReadInConfig()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ARMORY_BASE_URL", "https://armory.warmane.com")
	v.SetDefault("ITEM_URL_TEMPLATE", "https://wotlk.cavernoftime.com/item=%d")
	v.SetDefault("USER_AGENT", "Mozilla/5.0 (Warmane Armory Bot; +https://github.com/user/armory-card)")
	v.SetDefault("ACCEPT_LANGUAGE", "en-US,en;q=0.9")
	v.SetDefault("FETCH_TIMEOUT", "15s")
	v.SetDefault("PROXIES", "")
	v.SetDefault("PAGE_CACHE_BACKEND", "sqlite")
	v.SetDefault("ITEM_CACHE_BACKEND", "sqlite")
	v.SetDefault("SQLITE_PATH", "armory.db")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("PAGE_CACHE_TTL_MINUTES", 30)
	v.SetDefault("ITEM_CACHE_TTL_DAYS", 7)
	v.SetDefault("ENABLE_ITEM_LOOKUP", true)
	v.SetDefault("DEFAULT_REALM", "Icecrown")
	v.SetDefault("RENDER_BACKEND", "canvas")
	v.SetDefault("ICON_CONCURRENCY", 8)
	v.SetDefault("ICON_TIMEOUT", "15s")
	v.SetDefault("CHROME_PATH", "")
	v.SetDefault("RENDER_TIMEOUT", "30s")
	v.SetDefault("COMMAND_WORKERS", 4)
	v.SetDefault("COMMAND_QUEUE_SIZE", 32)
	v.SetDefault("COMMAND_TIMEOUT", "60s")
}

// Validate checks backend selections and their required connection settings.
func (c *Config) Validate() error {
	switch c.PageCacheBackend {
	case "sqlite", "redis", "postgres":
	default:
		return fmt.Errorf("PAGE_CACHE_BACKEND must be sqlite, redis or postgres, got %q", c.PageCacheBackend)
	}
	switch c.ItemCacheBackend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("ITEM_CACHE_BACKEND must be sqlite or postgres, got %q", c.ItemCacheBackend)
	}
	if (c.PageCacheBackend == "postgres" || c.ItemCacheBackend == "postgres") && c.PostgresURL == "" {
		return fmt.Errorf("POSTGRES_URL is required for the postgres cache backend")
	}
	switch c.RenderBackend {
	case "canvas", "browser":
	default:
		return fmt.Errorf("RENDER_BACKEND must be canvas or browser, got %q", c.RenderBackend)
	}
	if !strings.Contains(c.ItemURLTemplate, "%d") {
		return fmt.Errorf("ITEM_URL_TEMPLATE must contain %%d")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.CommandWorkers < 1 {
		return fmt.Errorf("COMMAND_WORKERS must be at least 1")
	}
	if c.IconConcurrency < 1 {
		return fmt.Errorf("ICON_CONCURRENCY must be at least 1")
	}
	return nil
}

// PageCacheTTL is the maximum age of a cached profile or talents page.
func (c *Config) PageCacheTTL() time.Duration {
	return time.Duration(c.PageCacheTTLMinutes) * time.Minute
}

// ItemCacheTTL is the maximum age of a cached item lookup, including failed ones.
func (c *Config) ItemCacheTTL() time.Duration {
	return time.Duration(c.ItemCacheTTLDays) * 24 * time.Hour
}

// ProxyList splits PROXIES on commas.
func (c *Config) ProxyList() []string {
	var out []string
	for _, p := range strings.Split(c.Proxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
