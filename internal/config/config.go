package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPassThreshold is the minimum score that completes a quiz-gated module.
const DefaultPassThreshold = 70

type Config struct {
	Server struct {
		Port string `yaml:"port"`
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
		TTL           string `yaml:"ttl"`
		PassThreshold int    `yaml:"pass_threshold" validate:"gte=0,lte=100"`
	} `yaml:"quiz"`
	Log struct {
		Mode string `yaml:"mode" validate:"omitempty,oneof=development dev production prod"`
	} `yaml:"log"`
	Seed struct {
		Path string `yaml:"path"`
	} `yaml:"seed"`
}

// Load reads YAML config from path and rejects out-of-range values.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// PassThreshold returns the configured quiz pass mark, or the default when unset.
func (c Config) PassThreshold() int {
	if c.Quiz.PassThreshold <= 0 || c.Quiz.PassThreshold > 100 {
		return DefaultPassThreshold
	}
	return c.Quiz.PassThreshold
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
