package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	AppMode   string
	Port      string
	Location  *time.Location
	StaticDir string
	Origins   string
	Database  DatabaseConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	Redis     RedisConfig
	Metrics   MetricsConfig
	Seed      SeedConfig
	Cron      CronConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// CookieConfig holds refresh cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// RedisConfig holds list cache configuration. Empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// MetricsConfig toggles the /metrics endpoint
type MetricsConfig struct {
	Enabled bool
}

// SeedConfig holds the bootstrap admin account
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
}

// CronConfig holds schedules for background jobs
type CronConfig struct {
	TokenCleanup string
}

// Development-only secrets, refused in prod
const (
	defaultAccessSecret  = "default_access_secret"
	defaultRefreshSecret = "default_refresh_secret"
)

// Global config instance
var AppConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_MODE", "dev")
	v.SetDefault("PORT", "5000")
	v.SetDefault("APP_TIMEZONE", "Asia/Jakarta")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USERNAME", "root")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "cmmstock")
	v.SetDefault("ACCESS_TOKEN_SECRET", defaultAccessSecret)
	v.SetDefault("REFRESH_TOKEN_SECRET", defaultRefreshSecret)
	v.SetDefault("ACCESS_TOKEN_MINUTES", 5)
	v.SetDefault("REFRESH_TOKEN_HOURS", 24)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("COOKIE_SAMESITE", "lax")
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL_SECONDS", 30)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("STATIC_DIR", "")
	v.SetDefault("SEED_ADMIN_EMAIL", "")
	v.SetDefault("SEED_ADMIN_PASSWORD", "")
	v.SetDefault("TOKEN_CLEANUP_CRON", "0 3 * * *")
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	config, err := fromViper(v)
	if err != nil {
		return nil, err
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", config.AppMode)
	return config, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	// trim spaces for Windows compatibility
	appMode := strings.TrimSpace(v.GetString("APP_MODE"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	driver := strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER")))
	if driver != "mysql" && driver != "postgres" {
		return nil, fmt.Errorf("invalid DB_DRIVER: '%s' (must be 'mysql' or 'postgres')", driver)
	}

	loc, err := time.LoadLocation(v.GetString("APP_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}

	accessMins := v.GetInt("ACCESS_TOKEN_MINUTES")
	refreshHours := v.GetInt("REFRESH_TOKEN_HOURS")
	if accessMins < 1 || refreshHours < 1 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}

	accessSecret := v.GetString("ACCESS_TOKEN_SECRET")
	refreshSecret := v.GetString("REFRESH_TOKEN_SECRET")
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if appMode == "prod" && (accessSecret == defaultAccessSecret || refreshSecret == defaultRefreshSecret) {
		return nil, fmt.Errorf("default token secrets are not allowed in prod")
	}

	return &Config{
		AppMode:   appMode,
		Port:      v.GetString("PORT"),
		Location:  loc,
		StaticDir: v.GetString("STATIC_DIR"),
		Origins:   v.GetString("ALLOWED_ORIGINS"),
		Database: DatabaseConfig{
			Driver:   driver,
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USERNAME"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
		},
		JWT: JWTConfig{
			Secret:        accessSecret,
			RefreshSecret: refreshSecret,
			AccessTTL:     time.Duration(accessMins) * time.Minute,
			RefreshTTL:    time.Duration(refreshHours) * time.Hour,
		},
		Cookie: CookieConfig{
			Secure:   v.GetBool("COOKIE_SECURE"),
			SameSite: v.GetString("COOKIE_SAMESITE"),
			Domain:   v.GetString("COOKIE_DOMAIN"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			TTL:      time.Duration(v.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		},
		Metrics: MetricsConfig{Enabled: v.GetBool("METRICS_ENABLED")},
		Seed: SeedConfig{
			AdminEmail:    v.GetString("SEED_ADMIN_EMAIL"),
			AdminPassword: v.GetString("SEED_ADMIN_PASSWORD"),
		},
		Cron: CronConfig{TokenCleanup: v.GetString("TOKEN_CLEANUP_CRON")},
	}, nil
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := c.Origins
	if origins == "" {
		if c.IsDev() {
			return "http://localhost:3000"
		}
		// Default production origins
		return "https://cmmstock.lifeforcode.net,https://www.cmmstock.lifeforcode.net"
	}
	return origins
}
