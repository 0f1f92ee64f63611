package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Catalog   CatalogConfig
	Form      FormConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string // empty keeps the environment default
	AllowedOrigins []string
}

// CatalogConfig selects and tunes the external data source
type CatalogConfig struct {
	Source       string // file, http or postgres
	Path         string
	URL          string
	Locale       string
	FetchTimeout time.Duration
	CacheTTL     time.Duration // 0 disables the Redis document cache
}

type FormConfig struct {
	RedirectDelay time.Duration
	SessionTTL    time.Duration
	MaxSessions   int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host was configured
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type MetricsConfig struct {
	Prefix string
}

func (c ServerConfig) IsDevelopment() bool {
	return c.Env != "production"
}

func Load() *Config {
	// Populate the process environment from .env so that AutomaticEnv sees it too
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env: %v", err)
	}

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("CATALOG_SOURCE", "file")
	viper.SetDefault("CATALOG_PATH", "public/db.json")
	viper.SetDefault("CATALOG_URL", "")
	viper.SetDefault("CATALOG_LOCALE", "vi")
	viper.SetDefault("CATALOG_FETCH_TIMEOUT", "5s")
	viper.SetDefault("CACHE_TTL", "0s")
	viper.SetDefault("FORM_REDIRECT_DELAY", "3s")
	viper.SetDefault("FORM_SESSION_TTL", "30m")
	viper.SetDefault("FORM_MAX_SESSIONS", 1000)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 30)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")
	viper.SetDefault("METRICS_PREFIX", "pharmacy")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Catalog: CatalogConfig{
			Source:       strings.ToLower(viper.GetString("CATALOG_SOURCE")),
			Path:         viper.GetString("CATALOG_PATH"),
			URL:          viper.GetString("CATALOG_URL"),
			Locale:       viper.GetString("CATALOG_LOCALE"),
			FetchTimeout: viper.GetDuration("CATALOG_FETCH_TIMEOUT"),
			CacheTTL:     viper.GetDuration("CACHE_TTL"),
		},
		Form: FormConfig{
			RedirectDelay: viper.GetDuration("FORM_REDIRECT_DELAY"),
			SessionTTL:    viper.GetDuration("FORM_SESSION_TTL"),
			MaxSessions:   viper.GetInt("FORM_MAX_SESSIONS"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Metrics: MetricsConfig{
			Prefix: viper.GetString("METRICS_PREFIX"),
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
