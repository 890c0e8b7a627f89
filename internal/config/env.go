package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// FromEnv returns the defaults with environment overrides applied.
func FromEnv() *Config {
	c := &Config{}
	c.ApplyEnv()
	c.ApplyDefaults()
	return c
}

// ApplyEnv overrides fields from WELLSPRING_* variables. Unset or malformed
// variables leave the field alone.
func (c *Config) ApplyEnv() {
	if val := getEnvInt("WELLSPRING_PORT"); val > 0 {
		c.Server.Port = val
	}
	if val := os.Getenv("WELLSPRING_ADMIN_KEY"); val != "" {
		c.Server.AdminKey = val
	}
	if val := os.Getenv("WELLSPRING_CORS_ORIGINS"); val != "" {
		c.Server.CORSOrigins = splitList(val)
	}
	if val := getEnvDuration("WELLSPRING_TICK_INTERVAL"); val > 0 {
		c.Sim.TickInterval = val
	}
	if val := getEnvInt("WELLSPRING_AUTOSAVE_EVERY"); val > 0 {
		c.Sim.AutosaveEvery = uint64(val)
	}
	if val := getEnvDuration("WELLSPRING_EVENT_TTL"); val > 0 {
		c.Sim.EventTTL = val
	}
	if val := getEnvDuration("WELLSPRING_SESSION_IDLE_TTL"); val != 0 {
		c.Sim.SessionIdleTTL = val
	}
	if val := os.Getenv("WELLSPRING_SEED"); val != "" {
		if seed, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Sim.Seed = seed
		}
	}
	if val := os.Getenv("WELLSPRING_STORAGE_DRIVER"); val != "" {
		c.Storage.Driver = val
	}
	if val := os.Getenv("WELLSPRING_SQLITE_PATH"); val != "" {
		c.Storage.SQLitePath = val
	}
	if val := os.Getenv("WELLSPRING_POSTGRES_DSN"); val != "" {
		c.Storage.PostgresDSN = val
	}
	if val := os.Getenv("WELLSPRING_RATE_LIMIT"); val != "" {
		if rps, err := strconv.ParseFloat(val, 64); err == nil && rps != 0 {
			c.RateLimit.PerSecond = rps
		}
	}
	if val := getEnvInt("WELLSPRING_RATE_BURST"); val > 0 {
		c.RateLimit.Burst = val
	}
	if val := os.Getenv("WELLSPRING_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
}

func getEnvInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}

func getEnvDuration(key string) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0
	}
	return d
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
