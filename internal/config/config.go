// Package config loads interpreter-wide tunables from YAML with SCXML_-
// prefixed environment overrides, following the layered config idiom common
// across the pack's service-shaped repos.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the handful of interpreter-wide scalars that aren't part of
// the static state graph itself.
type Config struct {
	ListenAddr         string `yaml:"listen_addr"`
	ExternalQueueDepth int    `yaml:"external_queue_depth"`
	Strict             bool   `yaml:"strict"`
	RespondInline      bool   `yaml:"respond_inline"`
	DocumentSearchPath string `yaml:"document_search_path"`
	LogLevel           string `yaml:"log_level"`
}

// Default returns the zero-config baseline.
func Default() Config {
	return Config{
		ListenAddr:         ":8090",
		ExternalQueueDepth: 64,
		Strict:             false,
		RespondInline:      false,
		LogLevel:           "info",
	}
}

// Load reads path (if non-empty and it exists) over the defaults, then
// applies SCXML_-prefixed environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("SCXML_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("SCXML_STRICT"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Strict = b
		}
	}
	if v, ok := os.LookupEnv("SCXML_RESPOND_INLINE"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RespondInline = b
		}
	}
	if v, ok := os.LookupEnv("SCXML_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("SCXML_DOCUMENT_SEARCH_PATH"); ok {
		cfg.DocumentSearchPath = v
	}
}
