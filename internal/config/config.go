package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oleksiiilienko/mxtoo/internal/sampler"
)

const (
	DefaultPort      = 7032
	DefaultBind      = "0.0.0.0"
	DefaultPublicDir = "public"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Bind           string        `yaml:"bind"`
	Port           int           `yaml:"port"`
	PublicDir      string        `yaml:"public_dir"`
	IdleInterval   time.Duration `yaml:"idle_interval"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	LogLevel       string        `yaml:"log_level"`
	OnSampleError  string        `yaml:"on_sample_error"`
	MetricsEnabled bool          `yaml:"metrics"`
}

func Default() *Config {
	return &Config{
		Bind:           DefaultBind,
		Port:           DefaultPort,
		PublicDir:      DefaultPublicDir,
		IdleInterval:   time.Second,
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		LogLevel:       "info",
		OnSampleError:  sampler.PolicyStop.String(),
		MetricsEnabled: true,
	}
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// Load builds the configuration: defaults, then the YAML file named by
// MXTOO_CONFIG if it exists, then MXTOO_* environment overrides.
func Load() (*Config, error) {
	cfg, err := loadFile(os.Getenv(EnvPrefix + "CONFIG"))
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.PublicDir == "" {
		cfg.PublicDir = DefaultPublicDir
	}
	return cfg, nil
}

// normalize lowercases the name-valued fields, whether they came from the
// file or the environment, and spells the policy the way sampler does.
func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if p, err := sampler.ParsePolicy(strings.TrimSpace(c.OnSampleError)); err == nil {
		c.OnSampleError = p.String()
	}
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	}
	if c.IdleInterval <= 0 {
		return fmt.Errorf("%w: idle_interval must be positive", ErrInvalid)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: write_timeout must be positive", ErrInvalid)
	}
	if c.PingInterval <= 0 {
		return fmt.Errorf("%w: ping_interval must be positive", ErrInvalid)
	}
	if _, err := sampler.ParsePolicy(c.OnSampleError); err != nil {
		return fmt.Errorf("%w: on_sample_error: %w", ErrInvalid, err)
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}
