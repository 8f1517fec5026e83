package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/AdamBeresnev/matchday/internal/schedule"
	"github.com/joho/godotenv"
)

type OAuthProvider struct {
	Key         string
	Secret      string
	CallbackURL string
}

func (p OAuthProvider) Enabled() bool {
	return p.Key != "" && p.Secret != ""
}

type Config struct {
	Port            int
	DatabasePath    string
	SessionLifetime time.Duration

	// Engine defaults for events that leave durations unset
	Schedule schedule.Options

	Discord OAuthProvider
	Google  OAuthProvider
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		DatabasePath: getEnv("DATABASE_PATH", "matchday.db"),
		Discord: OAuthProvider{
			Key:         os.Getenv("DISCORD_KEY"),
			Secret:      os.Getenv("DISCORD_SECRET"),
			CallbackURL: os.Getenv("DISCORD_CALLBACK_URL"),
		},
		Google: OAuthProvider{
			Key:         os.Getenv("GOOGLE_KEY"),
			Secret:      os.Getenv("GOOGLE_SECRET"),
			CallbackURL: os.Getenv("GOOGLE_CALLBACK_URL"),
		},
	}

	var err error
	if cfg.Port, err = getEnvAsInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.Port)
	}

	hours, err := getEnvAsInt("SESSION_LIFETIME_HOURS", 24)
	if err != nil {
		return nil, err
	}
	cfg.SessionLifetime = time.Duration(hours) * time.Hour

	defaults := schedule.DefaultOptions()
	durations := []struct {
		key  string
		unit time.Duration
		def  time.Duration
		dst  *time.Duration
	}{
		{"DEFAULT_MATCH_MINUTES", time.Minute, defaults.MatchDuration, &cfg.Schedule.MatchDuration},
		{"DEFAULT_SET_MINUTES", time.Minute, defaults.SetDuration, &cfg.Schedule.SetDuration},
		{"SET_REST_MINUTES", time.Minute, defaults.SetRest, &cfg.Schedule.SetRest},
		{"SCHEDULE_HORIZON_DAYS", 24 * time.Hour, defaults.Horizon, &cfg.Schedule.Horizon},
	}
	for _, d := range durations {
		n, err := getEnvAsInt(d.key, int(d.def/d.unit))
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %d", d.key, n)
		}
		*d.dst = time.Duration(n) * d.unit
	}

	if cfg.SessionLifetime <= 0 {
		return nil, fmt.Errorf("SESSION_LIFETIME_HOURS must be positive, got %d", hours)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback, fmt.Errorf("env var %s: expected integer, got '%s'", key, valueStr)
	}
	return value, nil
}
