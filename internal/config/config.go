package config

import (
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort    string `mapstructure:"SERVER_PORT"`
	PostgresURL   string `mapstructure:"POSTGRES_URL"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	MaxSessions   int    `mapstructure:"MAX_SESSIONS"`
	DetailWorkers int    `mapstructure:"DETAIL_WORKERS"`
	ScrapeTimeout int    `mapstructure:"SCRAPE_TIMEOUT"` // seconds
	MaxScrolls    int    `mapstructure:"MAX_SCROLLS"`
	Headless      bool   `mapstructure:"HEADLESS"`
	Proxy         string `mapstructure:"PROXY"`
	DedupTTLDays  int    `mapstructure:"DEDUP_TTL_DAYS"`

	// Email validity filters. Heuristic lists that need per-deployment
	// tuning, so they live in configuration rather than code.
	BlockedEmailDomains  []string `mapstructure:"BLOCKED_EMAIL_DOMAINS"`
	BlockedEmailKeywords []string `mapstructure:"BLOCKED_EMAIL_KEYWORDS"`
	GenericEmailDomains  []string `mapstructure:"GENERIC_EMAIL_DOMAINS"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = viper.ReadInConfig()

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("MAX_SESSIONS", 20)
	viper.SetDefault("DETAIL_WORKERS", 10)
	viper.SetDefault("SCRAPE_TIMEOUT", 15) // in seconds
	viper.SetDefault("MAX_SCROLLS", 10)
	viper.SetDefault("HEADLESS", true)
	viper.SetDefault("DEDUP_TTL_DAYS", 2)
	viper.SetDefault("BLOCKED_EMAIL_DOMAINS", []string{
		"sentry.io", "example.com", "test.com", "localhost", "w3.org",
		"schema.org", "google.com", "facebook.com", "instagram.com",
		"twitter.com", "x.com", "linkedin.com", "youtube.com",
		"maps.google.com",
	})
	viper.SetDefault("BLOCKED_EMAIL_KEYWORDS", []string{
		"noreply", "no-reply", "donotreply", "mailer-daemon",
		"postmaster", "webmaster", "abuse", "spam", "privacy",
	})
	viper.SetDefault("GENERIC_EMAIL_DOMAINS", []string{
		"gmail.com", "yahoo.com", "hotmail.com", "outlook.com",
	})

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
