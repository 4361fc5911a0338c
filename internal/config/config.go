package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"funneltrack/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Tokens
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Budget periods
	BreakpointDay int

	// OTP
	OTPIssuer string
	// OTPSecretKey, when set, is a hex-encoded 32-byte key enabling
	// at-rest sealing of stored OTP secrets. Empty means secrets are
	// stored in cleartext, the original deployment's accepted
	// trade-off.
	OTPSecretKey string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/funneltrack.db"),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		AccessTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		RefreshTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		BreakpointDay: getEnvInt("PERIOD_BREAKPOINT_DAY", core.DefaultBreakpointDay),

		OTPIssuer:    getEnv("OTP_ISSUER", "funneltrack"),
		OTPSecretKey: getEnv("OTP_SECRET_KEY", ""),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	}

	// Days 29-31 do not exist in every month, so the breakpoint is
	// clamped to a range every month contains.
	if c.BreakpointDay < 1 || c.BreakpointDay > 28 {
		errors = append(errors, fmt.Sprintf("invalid period breakpoint day %d: must be between 1 and 28", c.BreakpointDay))
	}

	if c.AccessTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid access token ttl %v: must be at least 1 minute", c.AccessTTL))
	}
	if c.RefreshTTL <= c.AccessTTL {
		errors = append(errors, fmt.Sprintf("invalid refresh token ttl %v: must exceed access ttl %v", c.RefreshTTL, c.AccessTTL))
	}

	if c.OTPIssuer == "" {
		errors = append(errors, "OTP issuer cannot be empty")
	}

	if c.OTPSecretKey != "" {
		if key, err := hex.DecodeString(c.OTPSecretKey); err != nil {
			errors = append(errors, "invalid OTP_SECRET_KEY: must be hex encoded")
		} else if len(key) != 32 {
			errors = append(errors, fmt.Sprintf("invalid OTP_SECRET_KEY: decoded length %d, want 32 bytes", len(key)))
		}
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// OTPSecretKeyBytes returns the decoded sealing key, or nil when
// sealing is disabled. Call Validate first.
func (c *Config) OTPSecretKeyBytes() []byte {
	if c.OTPSecretKey == "" {
		return nil
	}
	key, err := hex.DecodeString(c.OTPSecretKey)
	if err != nil {
		return nil
	}
	return key
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
