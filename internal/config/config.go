// Package config loads process configuration from the environment,
// following the teacher's godotenv+getEnv pattern
// (platform/backend/cmd/server/config.go).
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string // "development" or "production"

	RoomEmptyTTL           time.Duration
	ReconnectTimeout       time.Duration
	JoinRequestCooldown    time.Duration
	JoinRequestMaxAttempts int
	TurnTimerGrace         time.Duration

	AllowedOrigins []string
}

// Load reads .env (if present; a missing file is not an error) then builds
// a Config from the environment, falling back to spec.md §6/§5 defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                   getEnv("PORT", "8080"),
		Environment:            getEnv("NODE_ENV", "development"),
		RoomEmptyTTL:           time.Duration(getEnvInt("ROOM_EMPTY_TTL_SECONDS", 300)) * time.Second,
		ReconnectTimeout:       time.Duration(getEnvInt("RECONNECT_TIMEOUT_MINUTES", 2)) * time.Minute,
		JoinRequestCooldown:    time.Duration(getEnvInt("JOIN_REQUEST_COOLDOWN_SECONDS", 300)) * time.Second,
		JoinRequestMaxAttempts: getEnvInt("JOIN_REQUEST_MAX_ATTEMPTS", 3),
		TurnTimerGrace:         time.Duration(getEnvInt("TURN_TIMER_GRACE_MS", 2000)) * time.Millisecond,
		AllowedOrigins:         splitCSV(getEnv("ALLOWED_ORIGINS", "*")),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if i > start {
				out = append(out, v[start:i])
			}
			start = i + 1
		}
	}
	return out
}
