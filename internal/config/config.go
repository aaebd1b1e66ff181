// Package config loads process configuration for g6ctl: the API bind
// address, the mixer binary path and card hint, and log verbosity.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Config holds every setting g6ctl's binaries read at startup.
type Config struct {
	APIAddr       string
	MixerBin      string
	MixerCardHint string
	LogLevel      string
}

func defaults() Config {
	return Config{
		APIAddr:       ":8090",
		MixerBin:      "amixer",
		MixerCardHint: "Sound Blaster",
		LogLevel:      "info",
	}
}

var (
	loaded *Config
)

// Load returns the process configuration, memoized after the first
// call. Precedence: process environment > .env file (working directory
// or nearest ancestor with a go.mod) > built-in defaults.
func Load() *Config {
	if loaded != nil {
		return loaded
	}

	cfg := defaults()

	envPath := filepath.Join(findProjectRoot(), ".env")
	if data, err := os.ReadFile(envPath); err == nil {
		parseEnvFile(string(data), &cfg)
	}

	applyEnv(&cfg)

	loaded = &cfg
	return loaded
}

// Reload discards the memoized config, forcing the next Load to
// re-read the environment and .env file. Intended for tests only.
func Reload() {
	loaded = nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("G6CTL_API_ADDR"); v != "" {
		cfg.APIAddr = v
	}
	if v := os.Getenv("G6CTL_MIXER_BIN"); v != "" {
		cfg.MixerBin = v
	}
	if v := os.Getenv("G6CTL_MIXER_CARD_HINT"); v != "" {
		cfg.MixerCardHint = v
	}
	if v := os.Getenv("G6CTL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func parseEnvFile(content string, cfg *Config) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "G6CTL_API_ADDR":
			cfg.APIAddr = value
		case "G6CTL_MIXER_BIN":
			cfg.MixerBin = value
		case "G6CTL_MIXER_CARD_HINT":
			cfg.MixerCardHint = value
		case "G6CTL_LOG_LEVEL":
			cfg.LogLevel = value
		}
	}
}

// findProjectRoot looks for a .env in the working directory first,
// then walks up to the nearest ancestor containing a go.mod.
func findProjectRoot() string {
	cwd, _ := os.Getwd()
	if _, err := os.Stat(filepath.Join(cwd, ".env")); err == nil {
		return cwd
	}
	for {
		if _, err := os.Stat(filepath.Join(cwd, "go.mod")); err == nil {
			return cwd
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return cwd
		}
		cwd = parent
	}
}
