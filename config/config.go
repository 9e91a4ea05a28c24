package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Serp      SerpConfig      `mapstructure:"serp"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Trending  TrendingConfig  `mapstructure:"trending"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port              string        `mapstructure:"port"`
	Environment       string        `mapstructure:"environment"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxUploadBytes    int64         `mapstructure:"max_upload_bytes"`
	AllowedImageTypes []string      `mapstructure:"allowed_image_types"`
}

// GeminiConfig holds the generation model settings. An empty key disables it.
type GeminiConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`
	SpellOnly bool          `mapstructure:"spell_only"`
}

// SerpConfig holds SerpAPI configuration
type SerpConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	Country       string        `mapstructure:"country"`
	Language      string        `mapstructure:"language"`
	GoogleDomain  string        `mapstructure:"google_domain"`
	AmazonDomain  string        `mapstructure:"amazon_domain"`
	ResultCount   int           `mapstructure:"result_count"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
}

// ScraperConfig holds retailer page scraping settings
type ScraperConfig struct {
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	HeadLimit    int           `mapstructure:"head_limit"`
	Concurrency  int           `mapstructure:"concurrency"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	HostRate     float64       `mapstructure:"host_rate"` // Requests per second per retailer host
	HostBurst    int           `mapstructure:"host_burst"`
}

// PipelineConfig holds search pipeline tuning
type PipelineConfig struct {
	CurrencySymbol   string `mapstructure:"currency_symbol"`
	LargeImageBytes  int    `mapstructure:"large_image_bytes"`
	MediumImageBytes int    `mapstructure:"medium_image_bytes"`
}

// TrendingConfig holds trending discovery settings
type TrendingConfig struct {
	Keywords      []string      `mapstructure:"keywords"`
	Sites         []string      `mapstructure:"sites"`
	KeywordSample int           `mapstructure:"keyword_sample"`
	DefaultLimit  int           `mapstructure:"default_limit"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // Requests per minute
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/stylesearch/")

	// Environment variable settings, e.g. STYLESEARCH_SERP_API_KEY
	v.SetEnvPrefix("STYLESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env when present without overriding variables already set
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(".env")
}

// setDefaults sets default configuration values.
// Every key needs a default so AutomaticEnv can find it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*", "http://localhost:3000"})
	v.SetDefault("server.request_timeout", "45s")
	v.SetDefault("server.max_upload_bytes", 20<<20)
	v.SetDefault("server.allowed_image_types", []string{"image/jpeg", "image/png", "image/webp", "image/gif"})

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.timeout", "10s")
	v.SetDefault("gemini.spell_only", false)

	// SerpAPI defaults
	v.SetDefault("serp.api_key", "")
	v.SetDefault("serp.country", "in")
	v.SetDefault("serp.language", "en")
	v.SetDefault("serp.google_domain", "google.co.in")
	v.SetDefault("serp.amazon_domain", "amazon.in")
	v.SetDefault("serp.result_count", 40)
	v.SetDefault("serp.timeout", "20s")
	v.SetDefault("serp.rate_per_second", 5)
	v.SetDefault("serp.burst", 10)

	// Scraper defaults
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("scraper.timeout", "2s")
	v.SetDefault("scraper.head_limit", 8)
	v.SetDefault("scraper.concurrency", 4)
	v.SetDefault("scraper.max_body_bytes", 2<<20)
	v.SetDefault("scraper.host_rate", 2)
	v.SetDefault("scraper.host_burst", 4)

	// Pipeline defaults
	v.SetDefault("pipeline.currency_symbol", "₹")
	v.SetDefault("pipeline.large_image_bytes", 500000)
	v.SetDefault("pipeline.medium_image_bytes", 100000)

	// Trending defaults; empty lists fall back to the built-in keyword and site tables
	v.SetDefault("trending.keywords", []string{})
	v.SetDefault("trending.sites", []string{})
	v.SetDefault("trending.keyword_sample", 3)
	v.SetDefault("trending.default_limit", 12)
	v.SetDefault("trending.cache_ttl", "30m")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "30m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Serp.APIKey == "" {
		return fmt.Errorf("SerpAPI key is required (set STYLESEARCH_SERP_API_KEY)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Log.Format != "" && config.Log.Format != "json" && config.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got: %s", config.Log.Format)
	}

	for _, t := range []struct {
		name  string
		value time.Duration
	}{
		{"server.request_timeout", config.Server.RequestTimeout},
		{"gemini.timeout", config.Gemini.Timeout},
		{"serp.timeout", config.Serp.Timeout},
		{"scraper.timeout", config.Scraper.Timeout},
	} {
		if t.value <= 0 {
			return fmt.Errorf("%s must be positive, got: %v", t.name, t.value)
		}
	}

	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}

	return nil
}
