package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port    string `yaml:"port"`
		BaseURL string `yaml:"baseUrl"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Session struct {
		Countdown    string `yaml:"countdown"`
		MaxAutoStart int    `yaml:"maxAutoStart"`
		MaxActive    int    `yaml:"maxActive"`
	} `yaml:"session"`
	Export struct {
		Dir string `yaml:"dir"`
	} `yaml:"export"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads YAML config from path and fills defaults for omitted values.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Session.MaxAutoStart == 0 {
		c.Session.MaxAutoStart = 50
	}
	if c.Session.MaxActive == 0 {
		c.Session.MaxActive = 10
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "public"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Session.MaxAutoStart < 0 {
		errs = append(errs, fmt.Errorf("session.maxAutoStart must not be negative"))
	}
	if c.Session.MaxActive < 0 {
		errs = append(errs, fmt.Errorf("session.maxActive must not be negative"))
	}
	if c.Session.Countdown != "" {
		if d, err := time.ParseDuration(c.Session.Countdown); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("session.countdown %q is not a valid duration", c.Session.Countdown))
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", c.Log.Format))
	}
	return errors.Join(errs...)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
