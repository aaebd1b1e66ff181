// Package mixer is the only part of g6ctl allowed to shell out to an
// external ALSA mixer control binary. DeviceController never imports
// os/exec directly; it goes through SetCaptureDevice.
package mixer

import (
	"fmt"
	"os/exec"
	"strings"

	"g6ctl/internal/config"
)

// SetCaptureDevice selects and unmutes the capture control whose name
// contains cardNameHint, via the mixer binary named in Config
// (G6CTL_MIXER_BIN, default "amixer"). It never retries: a microphone
// misconfiguration is expected to get a human's attention.
func SetCaptureDevice(cardNameHint string) error {
	if cardNameHint == "" {
		return fmt.Errorf("mixer: cardNameHint must not be empty")
	}

	cfg := config.Load()

	bin, err := exec.LookPath(cfg.MixerBin)
	if err != nil {
		return fmt.Errorf("mixer: %s not found on PATH: %w", cfg.MixerBin, err)
	}

	cmd := exec.Command(bin, "sset", cardNameHint, "unmute", "cap")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mixer: %s sset %q unmute cap: %w: %s", cfg.MixerBin, cardNameHint, err, strings.TrimSpace(string(output)))
	}
	return nil
}
