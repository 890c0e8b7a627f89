// Package config loads server settings from a YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    Server    `yaml:"server" json:"server"`
	Sim       Sim       `yaml:"sim" json:"sim"`
	Storage   Storage   `yaml:"storage" json:"storage"`
	RateLimit RateLimit `yaml:"rate_limit" json:"rate_limit"`
	LogLevel  string    `yaml:"log_level" json:"log_level"`
}

type Server struct {
	Port        int      `yaml:"port" json:"port"`
	AdminKey    string   `yaml:"admin_key" json:"-"`
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`
}

type Sim struct {
	TickInterval   time.Duration `yaml:"tick_interval" json:"tick_interval"`
	AutosaveEvery  uint64        `yaml:"autosave_every" json:"autosave_every"` // ticks
	EventTTL       time.Duration `yaml:"event_ttl" json:"event_ttl"`
	Seed           int64         `yaml:"seed" json:"seed"`                         // 0 = crypto randomness
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl" json:"session_idle_ttl"` // negative keeps idle sessions loaded
}

type Storage struct {
	Driver      string `yaml:"driver" json:"driver"` // sqlite | postgres | memory
	SQLitePath  string `yaml:"sqlite_path" json:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn" json:"-"`
}

type RateLimit struct {
	PerSecond float64 `yaml:"per_second" json:"per_second"` // negative disables limiting
	Burst     int     `yaml:"burst" json:"burst"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills every zero field with its default.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Sim.TickInterval <= 0 {
		c.Sim.TickInterval = time.Second
	}
	if c.Sim.AutosaveEvery == 0 {
		c.Sim.AutosaveEvery = 30
	}
	if c.Sim.EventTTL <= 0 {
		c.Sim.EventTTL = 5 * time.Second
	}
	if c.Sim.SessionIdleTTL == 0 {
		c.Sim.SessionIdleTTL = 30 * time.Minute
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "wellspring.db"
	}
	if c.RateLimit.PerSecond == 0 {
		c.RateLimit.PerSecond = 10
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage driver postgres needs postgres_dsn")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Server.Port)
	}
	return nil
}

// Load reads a YAML file, applies environment overrides, then defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Config
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	r.ApplyEnv()
	r.ApplyDefaults()
	return &r, nil
}
