package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var configEnvVars = []string{
	"STYLESEARCH_SERVER_PORT",
	"STYLESEARCH_SERVER_ENVIRONMENT",
	"STYLESEARCH_SERVER_ALLOWED_ORIGINS",
	"STYLESEARCH_SERVER_REQUEST_TIMEOUT",
	"STYLESEARCH_SERP_API_KEY",
	"STYLESEARCH_SERP_COUNTRY",
	"STYLESEARCH_GEMINI_API_KEY",
	"STYLESEARCH_GEMINI_SPELL_ONLY",
	"STYLESEARCH_SCRAPER_HEAD_LIMIT",
	"STYLESEARCH_TRENDING_SITES",
	"STYLESEARCH_CACHE_TYPE",
	"STYLESEARCH_CACHE_REDIS_URL",
	"STYLESEARCH_CACHE_TTL",
	"STYLESEARCH_RATELIMIT_PER_IP",
	"STYLESEARCH_LOG_FORMAT",
}

func TestLoad(t *testing.T) {
	// Clean up environment before tests
	cleanupEnv := func() {
		for _, key := range configEnvVars {
			os.Unsetenv(key)
		}
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		// Set required API key
		os.Setenv("STYLESEARCH_SERP_API_KEY", "test-key")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		// Check defaults
		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Server.RequestTimeout != 45*time.Second {
			t.Errorf("Server.RequestTimeout = %v, want 45s", cfg.Server.RequestTimeout)
		}
		if cfg.Server.MaxUploadBytes != 20<<20 {
			t.Errorf("Server.MaxUploadBytes = %d, want %d", cfg.Server.MaxUploadBytes, 20<<20)
		}
		if cfg.Gemini.APIKey != "" {
			t.Errorf("Gemini.APIKey = %q, want empty", cfg.Gemini.APIKey)
		}
		if cfg.Gemini.Model != "gemini-1.5-flash" {
			t.Errorf("Gemini.Model = %s, want gemini-1.5-flash", cfg.Gemini.Model)
		}
		if cfg.Serp.GoogleDomain != "google.co.in" {
			t.Errorf("Serp.GoogleDomain = %s, want google.co.in", cfg.Serp.GoogleDomain)
		}
		if cfg.Serp.ResultCount != 40 {
			t.Errorf("Serp.ResultCount = %d, want 40", cfg.Serp.ResultCount)
		}
		if cfg.Scraper.Timeout != 2*time.Second {
			t.Errorf("Scraper.Timeout = %v, want 2s", cfg.Scraper.Timeout)
		}
		if cfg.Scraper.HeadLimit != 8 {
			t.Errorf("Scraper.HeadLimit = %d, want 8", cfg.Scraper.HeadLimit)
		}
		if cfg.Pipeline.CurrencySymbol != "₹" {
			t.Errorf("Pipeline.CurrencySymbol = %s, want ₹", cfg.Pipeline.CurrencySymbol)
		}
		if cfg.Pipeline.LargeImageBytes != 500000 || cfg.Pipeline.MediumImageBytes != 100000 {
			t.Errorf("image thresholds = %d/%d, want 500000/100000", cfg.Pipeline.LargeImageBytes, cfg.Pipeline.MediumImageBytes)
		}
		if cfg.Trending.DefaultLimit != 12 {
			t.Errorf("Trending.DefaultLimit = %d, want 12", cfg.Trending.DefaultLimit)
		}
		if cfg.Trending.CacheTTL != 30*time.Minute {
			t.Errorf("Trending.CacheTTL = %v, want 30m", cfg.Trending.CacheTTL)
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
		if cfg.Log.Format != "json" {
			t.Errorf("Log.Format = %s, want json", cfg.Log.Format)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("STYLESEARCH_SERVER_PORT", "9090")
		os.Setenv("STYLESEARCH_SERVER_ENVIRONMENT", "production")
		os.Setenv("STYLESEARCH_SERVER_REQUEST_TIMEOUT", "30s")
		os.Setenv("STYLESEARCH_SERP_API_KEY", "custom-api-key")
		os.Setenv("STYLESEARCH_SERP_COUNTRY", "us")
		os.Setenv("STYLESEARCH_GEMINI_API_KEY", "gemini-key")
		os.Setenv("STYLESEARCH_GEMINI_SPELL_ONLY", "true")
		os.Setenv("STYLESEARCH_SCRAPER_HEAD_LIMIT", "5")
		os.Setenv("STYLESEARCH_TRENDING_SITES", "myntra.com,ajio.com")
		os.Setenv("STYLESEARCH_CACHE_TYPE", "redis")
		os.Setenv("STYLESEARCH_CACHE_REDIS_URL", "redis://localhost:6379")
		os.Setenv("STYLESEARCH_CACHE_TTL", "24h")
		os.Setenv("STYLESEARCH_RATELIMIT_PER_IP", "200")
		os.Setenv("STYLESEARCH_LOG_FORMAT", "console")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Server.RequestTimeout != 30*time.Second {
			t.Errorf("Server.RequestTimeout = %v, want 30s", cfg.Server.RequestTimeout)
		}
		if cfg.Serp.APIKey != "custom-api-key" {
			t.Errorf("Serp.APIKey = %s, want custom-api-key", cfg.Serp.APIKey)
		}
		if cfg.Serp.Country != "us" {
			t.Errorf("Serp.Country = %s, want us", cfg.Serp.Country)
		}
		if cfg.Gemini.APIKey != "gemini-key" || !cfg.Gemini.SpellOnly {
			t.Errorf("Gemini = %+v, want key set and spell only", cfg.Gemini)
		}
		if cfg.Scraper.HeadLimit != 5 {
			t.Errorf("Scraper.HeadLimit = %d, want 5", cfg.Scraper.HeadLimit)
		}
		if strings.Join(cfg.Trending.Sites, "|") != "myntra.com|ajio.com" {
			t.Errorf("Trending.Sites = %v, want [myntra.com ajio.com]", cfg.Trending.Sites)
		}
		if cfg.Cache.Type != "redis" {
			t.Errorf("Cache.Type = %s, want redis", cfg.Cache.Type)
		}
		if cfg.Cache.RedisURL != "redis://localhost:6379" {
			t.Errorf("Cache.RedisURL = %s, want redis://localhost:6379", cfg.Cache.RedisURL)
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
		if cfg.Log.Format != "console" {
			t.Errorf("Log.Format = %s, want console", cfg.Log.Format)
		}
	})

	t.Run("fails validation when API key is missing", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for missing API key")
		}
		if err.Error() != "invalid configuration: SerpAPI key is required (set STYLESEARCH_SERP_API_KEY)" {
			t.Errorf("Load() error = %v, want 'SerpAPI key is required'", err)
		}
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("STYLESEARCH_SERP_API_KEY", "test-key")
		os.Setenv("STYLESEARCH_CACHE_TYPE", "invalid")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for invalid cache type")
		}
	})

	t.Run("fails validation when redis URL missing for redis cache", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("STYLESEARCH_SERP_API_KEY", "test-key")
		os.Setenv("STYLESEARCH_CACHE_TYPE", "redis")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for missing Redis URL")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		// Save current directory
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		os.Chdir(t.TempDir())

		err := loadEnvFile()
		if err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables from .env file", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		os.Chdir(t.TempDir())

		envContent := `
# Comment line
TEST_VAR_1=value1
TEST_VAR_2=value2

# Another comment
TEST_VAR_3=value3
`
		if err := os.WriteFile(".env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
		os.Unsetenv("TEST_VAR_3")
		defer func() {
			os.Unsetenv("TEST_VAR_1")
			os.Unsetenv("TEST_VAR_2")
			os.Unsetenv("TEST_VAR_3")
		}()

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		for key, want := range map[string]string{"TEST_VAR_1": "value1", "TEST_VAR_2": "value2", "TEST_VAR_3": "value3"} {
			if got := os.Getenv(key); got != want {
				t.Errorf("%s = %s, want %s", key, got, want)
			}
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		os.Chdir(t.TempDir())

		os.Setenv("TEST_OVERRIDE", "existing-value")
		defer os.Unsetenv("TEST_OVERRIDE")

		if err := os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}
	})

	t.Run("serp key from .env satisfies Load", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		os.Chdir(t.TempDir())
		os.Unsetenv("STYLESEARCH_SERP_API_KEY")
		defer os.Unsetenv("STYLESEARCH_SERP_API_KEY")

		if err := os.WriteFile(".env", []byte("STYLESEARCH_SERP_API_KEY=from-dotenv\n"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}
		if cfg.Serp.APIKey != "from-dotenv" {
			t.Errorf("Serp.APIKey = %s, want from-dotenv", cfg.Serp.APIKey)
		}
	})
}

// validConfig returns a configuration that passes validation
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			RequestTimeout: 45 * time.Second,
			MaxUploadBytes: 20 << 20,
		},
		Gemini:  GeminiConfig{Timeout: 10 * time.Second},
		Serp:    SerpConfig{APIKey: "test-key", Timeout: 20 * time.Second},
		Scraper: ScraperConfig{Timeout: 2 * time.Second},
		Cache:   CacheConfig{Type: "memory"},
		Log:     LogConfig{Format: "json"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "validates successfully with all required fields",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "fails when API key is empty",
			mutate:  func(c *Config) { c.Serp.APIKey = "" },
			wantErr: true,
		},
		{
			name:    "missing gemini key is allowed",
			mutate:  func(c *Config) { c.Gemini.APIKey = "" },
			wantErr: false,
		},
		{
			name:    "fails for invalid cache type",
			mutate:  func(c *Config) { c.Cache.Type = "invalid-type" },
			wantErr: true,
		},
		{
			name: "validates redis cache type with URL",
			mutate: func(c *Config) {
				c.Cache.Type = "redis"
				c.Cache.RedisURL = "redis://localhost:6379"
			},
			wantErr: false,
		},
		{
			name:    "fails for redis cache without URL",
			mutate:  func(c *Config) { c.Cache.Type = "redis" },
			wantErr: true,
		},
		{
			name:    "fails for unknown log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "fails for zero scraper timeout",
			mutate:  func(c *Config) { c.Scraper.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "fails for negative request timeout",
			mutate:  func(c *Config) { c.Server.RequestTimeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "fails for zero upload limit",
			mutate:  func(c *Config) { c.Server.MaxUploadBytes = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
