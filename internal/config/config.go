package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config carries everything the server reads from the environment.
type Config struct {
	Port        string
	DatabaseDSN string
	RedisAddr   string

	// Execution dispatcher limits.
	ExecDefaultTimeLimit time.Duration
	ExecMaxTimeLimit     time.Duration
	SandboxImage         string
	SandboxMemoryBytes   int64

	// ICE servers advertised to clients.
	STUNServers  []string
	TURNURL      string
	TURNUsername string
	TURNPassword string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		DatabaseDSN:          getEnvOrDefault("DATABASE_DSN", "host=localhost user=postgres dbname=assessly sslmode=disable"),
		RedisAddr:            getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		ExecDefaultTimeLimit: getEnvMillis("EXEC_DEFAULT_TIME_LIMIT_MS", 5000),
		ExecMaxTimeLimit:     getEnvMillis("EXEC_MAX_TIME_LIMIT_MS", 10000),
		SandboxImage:         getEnvOrDefault("SANDBOX_IMAGE", "python:3.11-slim"),
		SandboxMemoryBytes:   256 * 1024 * 1024,
		TURNURL:              os.Getenv("TURN_URL"),
		TURNUsername:         os.Getenv("TURN_USERNAME"),
		TURNPassword:         os.Getenv("TURN_PASSWORD"),
	}

	if custom := os.Getenv("STUN_SERVERS"); custom != "" {
		cfg.STUNServers = []string{custom}
	} else {
		cfg.STUNServers = []string{
			"stun:stun.l.google.com:19302",
			"stun:stun1.l.google.com:19302",
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.ExecDefaultTimeLimit <= 0 || cfg.ExecMaxTimeLimit <= 0 {
		return errors.New("execution time limits must be positive")
	}
	if cfg.ExecDefaultTimeLimit > cfg.ExecMaxTimeLimit {
		return errors.New("default execution time limit exceeds the maximum")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvMillis(key string, defaultMs int) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(defaultMs) * time.Millisecond
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return time.Duration(defaultMs) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}
