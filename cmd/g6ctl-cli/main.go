// Command g6ctl-cli is a one-shot, flag-driven client for the Sound
// Blaster X G6: connect, print state, toggle output, or set a single
// effect/mode, then exit.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"g6ctl/internal/device"
	"g6ctl/internal/protocol"
)

var (
	mode   = flag.String("mode", "info", "operation mode: info, toggle-output, set-effect, set-gaming, set-filter, monitor")
	effect = flag.String("effect", "surround", "effect name for set-effect: surround, dialogplus, smartvolume, crystalizer, bass")
	enable = flag.Bool("enable", true, "enabled state for set-effect/set-gaming")
	value  = flag.Int("value", 50, "slider value [0,100] for set-effect")
	gaming = flag.String("gaming", "sbx", "gaming mode for set-gaming: sbx, scout")
	filter = flag.Int("filter", 1, "digital filter code for set-filter")
	watch  = flag.Duration("watch", 5*time.Second, "how long monitor mode prints incoming events")
)

func main() {
	flag.Parse()

	ctl := device.New()
	if err := ctl.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "g6ctl-cli: connect: %v\n", err)
		os.Exit(1)
	}
	defer ctl.Disconnect()

	var err error
	switch *mode {
	case "info":
		err = printState(ctl)
	case "toggle-output":
		err = ctl.ToggleOutput()
	case "set-effect":
		err = setEffect(ctl)
	case "set-gaming":
		err = setGaming(ctl)
	case "set-filter":
		err = ctl.SetDigitalFilter(protocol.DigitalFilter(*filter))
	case "monitor":
		err = monitor(ctl)
	default:
		fmt.Fprintf(os.Stderr, "g6ctl-cli: unknown mode %q\n", *mode)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "g6ctl-cli: %s: %v\n", *mode, err)
		os.Exit(1)
	}
	if *mode != "info" && *mode != "monitor" {
		printState(ctl)
	}
}

func printState(ctl *device.Controller) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(ctl.State())
}

func setEffect(ctl *device.Controller) error {
	st := protocol.EffectState(*enable)
	v := protocol.EffectValue(*value)
	switch *effect {
	case "surround":
		return ctl.SetSurround(st, v)
	case "dialogplus":
		return ctl.SetDialogPlus(st, v)
	case "smartvolume":
		return ctl.SetSmartVolume(st, v)
	case "crystalizer":
		return ctl.SetCrystalizer(st, v)
	case "bass":
		return ctl.SetBass(st, v)
	default:
		return fmt.Errorf("unknown effect %q", *effect)
	}
}

func setGaming(ctl *device.Controller) error {
	switch *gaming {
	case "sbx":
		return ctl.SetSbxMode(*enable)
	case "scout":
		return ctl.SetScoutMode(*enable)
	default:
		return fmt.Errorf("unknown gaming mode %q", *gaming)
	}
}

func monitor(ctl *device.Controller) error {
	sub := ctl.Subscribe()
	deadline := time.After(*watch)
	for {
		select {
		case <-sub:
			printState(ctl)
		case <-deadline:
			return nil
		}
	}
}
