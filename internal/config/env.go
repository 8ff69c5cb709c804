// This file contains environment variable overrides for the server config.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is prepended to every environment key.
const EnvPrefix = "MXTOO_"

// envOverride maps one environment key (without EnvPrefix) to the function
// that applies its value. Values that fail to parse leave the field as is.
type envOverride struct {
	envKey string
	apply  func(*Config, string)
}

var envOverrides = []envOverride{
	{"PORT", func(c *Config, v string) {
		if parsed, err := strconv.ParseUint(v, 10, 16); err == nil && parsed > 0 {
			c.Port = int(parsed)
		}
	}},
	{"PUBLIC_DIR", func(c *Config, v string) {
		c.PublicDir = v
	}},
	{"BIND", func(c *Config, v string) {
		c.Bind = v
	}},
	{"IDLE_INTERVAL", durationOverride(func(c *Config) *time.Duration { return &c.IdleInterval })},
	{"WRITE_TIMEOUT", durationOverride(func(c *Config) *time.Duration { return &c.WriteTimeout })},
	{"PING_INTERVAL", durationOverride(func(c *Config) *time.Duration { return &c.PingInterval })},
	{"LOG_LEVEL", func(c *Config, v string) {
		c.LogLevel = v
	}},
	{"ON_SAMPLE_ERROR", func(c *Config, v string) {
		c.OnSampleError = v
	}},
	{"METRICS", func(c *Config, v string) {
		c.MetricsEnabled = parseBoolEnv(v, c.MetricsEnabled)
	}},
}

func durationOverride(field func(*Config) *time.Duration) func(*Config, string) {
	return func(c *Config, v string) {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			*field(c) = parsed
		}
	}
}

// parseBoolEnv accepts "true", "1", "yes" and "false", "0", "no"
// (case-insensitive). Anything else returns defaultVal.
func parseBoolEnv(val string, defaultVal bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultVal
}

// applyEnvOverrides applies every set MXTOO_* variable on top of cfg.
func applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		if val := os.Getenv(EnvPrefix + o.envKey); val != "" {
			o.apply(cfg, val)
		}
	}
}
