// Package config loads the CLI configuration: defaults, then an optional
// yaml file, then environment overrides.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// DataDir holds the profile document, the sealed key and the feed.
	DataDir string `yaml:"dataDir"`
	// DefaultVisibility applies when a set command names none.
	DefaultVisibility string `yaml:"defaultVisibility"`
	// FeedChunkSize is the number of statuses per signed feed chunk.
	FeedChunkSize int    `yaml:"feedChunkSize"`
	LogLevel      string `yaml:"logLevel"`
}

func Default() Config {
	dataDir := ".paladin"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".paladin")
	}
	return Config{
		DataDir:           dataDir,
		DefaultVisibility: "public",
		FeedChunkSize:     10,
		LogLevel:          "info",
	}
}

// LoadFromPath reads the config file at configPath, falling back to the
// conventional locations when none is given. A missing or unreadable file
// leaves the defaults in place.
func LoadFromPath(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"paladin.yaml",
			filepath.Join(cfg.DataDir, "config.yaml"),
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		Merge(&cfg, parsed)
		break
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

func Merge(dst *Config, src Config) {
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if src.DefaultVisibility != "" {
		dst.DefaultVisibility = src.DefaultVisibility
	}
	if src.FeedChunkSize > 0 {
		dst.FeedChunkSize = src.FeedChunkSize
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PALADIN_DATA_DIR")); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("PALADIN_DEFAULT_VISIBILITY")); v != "" {
		cfg.DefaultVisibility = v
	}
	if v := strings.TrimSpace(os.Getenv("PALADIN_FEED_CHUNK_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FeedChunkSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("PALADIN_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
}
