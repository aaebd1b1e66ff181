package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	Reload()
	cfg := Load()
	if cfg.APIAddr != ":8090" {
		t.Errorf("APIAddr = %q, want default", cfg.APIAddr)
	}
	if cfg.MixerBin != "amixer" {
		t.Errorf("MixerBin = %q, want default", cfg.MixerBin)
	}
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	Reload()
	t.Setenv("G6CTL_LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadEnvOverridesEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("G6CTL_MIXER_CARD_HINT=FromFile\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module fixture\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	origWD, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(origWD)

	Reload()
	fileOnly := Load()
	if fileOnly.MixerCardHint != "FromFile" {
		t.Fatalf("MixerCardHint = %q, want the .env value", fileOnly.MixerCardHint)
	}

	Reload()
	t.Setenv("G6CTL_MIXER_CARD_HINT", "FromEnv")
	overridden := Load()
	if overridden.MixerCardHint != "FromEnv" {
		t.Fatalf("MixerCardHint = %q, want the environment to win over the .env file", overridden.MixerCardHint)
	}
}

func TestLoadIsMemoized(t *testing.T) {
	Reload()
	first := Load()
	t.Setenv("G6CTL_LOG_LEVEL", "trace")
	second := Load()
	if second.LogLevel != first.LogLevel {
		t.Fatal("Load must not re-read the environment without an explicit Reload")
	}
}
