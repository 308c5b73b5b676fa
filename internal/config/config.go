// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/AnonArchitect/career-crawler/internal/scraper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server      ServerConfig     `mapstructure:"server"`
	Scraping    ScrapingConfig   `mapstructure:"scraping"`
	Preferences PreferenceConfig `mapstructure:"preferences"`
	DB          DBConfig         `mapstructure:"db"`
	Telegram    TelegramConfig   `mapstructure:"telegram"`
	Logging     LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls the HTTP status API.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// TargetConfig names one company careers page to scrape.
type TargetConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// ScrapingConfig governs the fetch pass: targets, identification, pacing,
// retries, and the daily schedule.
type ScrapingConfig struct {
	Targets             []TargetConfig `mapstructure:"targets"`
	UserAgent           string         `mapstructure:"user_agent"`
	RequestDelaySeconds float64        `mapstructure:"request_delay_seconds"`
	MaxRetries          int            `mapstructure:"max_retries"`
	TimeoutSeconds      int            `mapstructure:"timeout_seconds"`
	ScheduleTime        string         `mapstructure:"schedule_time"`
}

// PreferenceConfig holds the user's job matching rules.
type PreferenceConfig struct {
	Titles     []string `mapstructure:"titles"`
	Exclusions []string `mapstructure:"exclusions"`
	Location   []string `mapstructure:"location"`
	Seniority  []string `mapstructure:"seniority"`
	Department []string `mapstructure:"department"`
}

// DBConfig controls access to the postings database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// TelegramConfig holds the alert channel settings.
type TelegramConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Token           string `mapstructure:"token"`
	ChatID          int64  `mapstructure:"chat_id"`
	MaxAlertsPerRun int    `mapstructure:"max_alerts_per_run"`
	SendPauseMs     int    `mapstructure:"send_pause_ms"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CAREERCRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("scraping.user_agent",
		"Mozilla/5.0 (compatible; CareerCrawler/1.0; +https://github.com/AnonArchitect/career-crawler)")
	v.SetDefault("scraping.request_delay_seconds", 3)
	v.SetDefault("scraping.max_retries", 3)
	v.SetDefault("scraping.timeout_seconds", 30)
	v.SetDefault("scraping.schedule_time", "09:00")
	v.SetDefault("preferences.location", []string{"any"})
	v.SetDefault("preferences.seniority", []string{"any"})
	v.SetDefault("preferences.department", []string{"any"})
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_alerts_per_run", 10)
	v.SetDefault("telegram.send_pause_ms", 1000)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if c.Scraping.RequestDelaySeconds < 0 {
		return fmt.Errorf("scraping.request_delay_seconds must be >= 0")
	}
	if c.Scraping.MaxRetries <= 0 {
		return fmt.Errorf("scraping.max_retries must be > 0")
	}
	if c.Scraping.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraping.timeout_seconds must be > 0")
	}
	for i, target := range c.Scraping.Targets {
		if target.Name == "" || target.URL == "" {
			return fmt.Errorf("scraping.targets[%d] requires both name and url", i)
		}
	}
	if c.Telegram.Enabled {
		if c.Telegram.Token == "" {
			return fmt.Errorf("telegram.token must be set when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id must be set when telegram is enabled")
		}
		if c.Telegram.MaxAlertsPerRun <= 0 {
			return fmt.Errorf("telegram.max_alerts_per_run must be > 0")
		}
	}
	return nil
}

// RequestDelay converts the configured per-site delay into a duration.
func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.Scraping.RequestDelaySeconds * float64(time.Second))
}

// RequestTimeout converts the configured fetch timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Scraping.TimeoutSeconds) * time.Second
}

// SendPause converts the configured inter-alert pause into a duration.
func (c Config) SendPause() time.Duration {
	return time.Duration(c.Telegram.SendPauseMs) * time.Millisecond
}

// Targets maps the configured targets into domain values.
func (c Config) Targets() []scraper.Target {
	targets := make([]scraper.Target, 0, len(c.Scraping.Targets))
	for _, t := range c.Scraping.Targets {
		targets = append(targets, scraper.Target{Name: t.Name, URL: t.URL})
	}
	return targets
}

// JobPreferences maps the preference section into the domain filter input.
func (c Config) JobPreferences() scraper.Preferences {
	return scraper.Preferences{
		Titles:      c.Preferences.Titles,
		Exclusions:  c.Preferences.Exclusions,
		Locations:   c.Preferences.Location,
		Seniority:   c.Preferences.Seniority,
		Departments: c.Preferences.Department,
	}
}
