package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the grant
// tracker service.
type Config struct {
	HTTPPort      int
	SQLitePath    string
	SessionTTL    time.Duration
	AdminEmail    string
	AdminPassword string
	LogLevel      slog.Level
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values and reporting every missing or malformed entry at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:   8080,
		SQLitePath: "granttracker.db",
		SessionTTL: 24 * time.Hour,
		LogLevel:   slog.LevelInfo,
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("GRANTTRACKER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "GRANTTRACKER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := strings.TrimSpace(os.Getenv("GRANTTRACKER_SQLITE_PATH")); path != "" {
		cfg.SQLitePath = path
	}

	if ttlValue := strings.TrimSpace(os.Getenv("GRANTTRACKER_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "GRANTTRACKER_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if email := strings.TrimSpace(os.Getenv("GRANTTRACKER_ADMIN_EMAIL")); email == "" {
		missing = append(missing, "GRANTTRACKER_ADMIN_EMAIL")
	} else {
		cfg.AdminEmail = email
	}

	if password := os.Getenv("GRANTTRACKER_ADMIN_PASSWORD"); strings.TrimSpace(password) == "" {
		missing = append(missing, "GRANTTRACKER_ADMIN_PASSWORD")
	} else {
		cfg.AdminPassword = password
	}

	if levelValue := strings.TrimSpace(os.Getenv("GRANTTRACKER_LOG_LEVEL")); levelValue != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, "GRANTTRACKER_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
