package state

import (
	"testing"
	"time"

	"g6ctl/internal/protocol"
)

func TestMirrorGetReturnsValueCopy(t *testing.T) {
	m := New()
	m.ApplyOutput(protocol.OutputHeadphones)

	snap := m.Get()
	snap.Output.Device = protocol.OutputSpeakers

	if got := m.Get().Output.Device; got != protocol.OutputHeadphones {
		t.Fatalf("mutating a Get() result leaked back into the mirror: got %v", got)
	}
}

func TestMirrorDisconnectDoesNotClearOtherFields(t *testing.T) {
	m := New()
	m.ApplyOutput(protocol.OutputSpeakers)
	m.SetConnected(true)
	m.SetConnected(false)

	snap := m.Get()
	if snap.IsConnected {
		t.Fatal("expected disconnected")
	}
	if snap.Output.Device != protocol.OutputSpeakers {
		t.Fatal("disconnect must not clear stale fields, only the trust flag")
	}
}

func TestMirrorEffectSlotsAreIndependent(t *testing.T) {
	m := New()
	m.ApplyEffectToggle(protocol.FeatureSurround, protocol.Enabled)
	m.ApplyEffectValue(protocol.FeatureSurroundValue, protocol.EffectValue(80))
	m.ApplyEffectToggle(protocol.FeatureBass, protocol.Disabled)

	snap := m.Get()
	if snap.Surround.State != protocol.Enabled || snap.Surround.Value != 80 {
		t.Fatalf("surround = %+v", snap.Surround)
	}
	if snap.Bass.State != protocol.Disabled {
		t.Fatalf("bass = %+v", snap.Bass)
	}
}

func TestMirrorApplyEventConsistencyRule(t *testing.T) {
	m := New()
	// Optimistic update from a command ack.
	m.ApplyEffectValue(protocol.FeatureCrystalizerValue, protocol.EffectValue(60))

	// A conflicting authoritative event arrives after.
	m.ApplyEvent(protocol.DeviceEvent{
		Kind:    protocol.EventEffectValueChanged,
		Feature: protocol.FeatureCrystalizerValue,
		Value:   protocol.EffectValue(45),
	})

	if got := m.Get().Crystalizer.Value; got != 45 {
		t.Fatalf("event update = %d, want the event's value (45) to win", got)
	}
}

func TestMirrorStampReadIsNonDecreasing(t *testing.T) {
	m := New()
	later := time.Unix(1000, 0)
	earlier := time.Unix(500, 0)

	m.StampRead(later)
	m.StampRead(earlier)

	if got := m.Get().LastReadUnixSeconds; got != 1000 {
		t.Fatalf("LastReadUnixSeconds = %d, want non-decreasing (1000)", got)
	}
}

func TestMirrorApplyEventGamingModes(t *testing.T) {
	m := New()
	m.ApplyEvent(protocol.DeviceEvent{Kind: protocol.EventSbxModeChanged, Enabled: true})
	m.ApplyEvent(protocol.DeviceEvent{Kind: protocol.EventScoutModeChanged, Enabled: false})

	snap := m.Get()
	if !snap.SbxEnabled || snap.ScoutMode {
		t.Fatalf("snap = %+v", snap)
	}
}
