// Package state holds the authoritative in-memory mirror of the G6's
// observable settings, mutated by command acknowledgements and by the
// listener's event stream (spec.md §4.5).
package state

import (
	"sync"
	"time"

	"g6ctl/internal/protocol"
)

// EffectSetting is the (enabled, percentage) pair tracked for one
// toggle/value feature such as Surround or Crystalizer.
type EffectSetting struct {
	State protocol.EffectState `json:"state"`
	Value protocol.EffectValue `json:"value"`
}

// SettingsSnapshot is the mirror's value-copy record (spec.md §3).
// When IsConnected is false, only IsConnected itself is trustworthy —
// every other field reflects the last known state and may be stale.
type SettingsSnapshot struct {
	Output OutputSetting `json:"output"`

	Surround    EffectSetting `json:"surround"`
	DialogPlus  EffectSetting `json:"dialog_plus"`
	SmartVolume EffectSetting `json:"smart_volume"`
	Crystalizer EffectSetting `json:"crystalizer"`
	Bass        EffectSetting `json:"bass"`

	SbxEnabled bool `json:"sbx_enabled"`
	ScoutMode  bool `json:"scout_mode"`

	DigitalFilter    protocol.DigitalFilter `json:"digital_filter"`
	HasDigitalFilter bool                   `json:"has_digital_filter"`

	Firmware    protocol.FirmwareInfo `json:"firmware"`
	HasFirmware bool                  `json:"has_firmware"`

	IsConnected          bool  `json:"is_connected"`
	LastReadUnixSeconds  int64 `json:"last_read_unix_seconds"`
	HasLastReadTimestamp bool  `json:"has_last_read_timestamp"`
}

// OutputSetting tracks the routed output and whether it has ever been
// observed (the zero value of protocol.OutputDevice is not itself a
// legal wire code, so a Known flag avoids treating "never read" the
// same as "read as Speakers").
type OutputSetting struct {
	Device protocol.OutputDevice `json:"device"`
	Known  bool                 `json:"known"`
}

// Mirror is a mutex-guarded SettingsSnapshot. Mutation methods update
// the snapshot in place under the lock; Get hands callers a value copy,
// matching the teacher's "mutex plus lock-free snapshot copy" pattern.
type Mirror struct {
	mu   sync.Mutex
	snap SettingsSnapshot
}

// New returns an empty, disconnected Mirror.
func New() *Mirror {
	return &Mirror{}
}

// Get returns a value-copy of the current snapshot, safe to read
// without further locking.
func (m *Mirror) Get() SettingsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// SetConnected records the handle's connection state. Disconnecting
// does not clear the other fields; it only flips the trust flag per
// spec.md §3.
func (m *Mirror) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.IsConnected = connected
}

// ApplyOutput records an optimistic or authoritative output-device
// observation.
func (m *Mirror) ApplyOutput(d protocol.OutputDevice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Output = OutputSetting{Device: d, Known: true}
}

// ApplyEffectToggle records an enable/disable observation for a
// toggle feature. Unrecognized feature ids are ignored.
func (m *Mirror) ApplyEffectToggle(feat protocol.FeatureID, state protocol.EffectState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.effectSlot(feat); s != nil {
		s.State = state
	}
}

// ApplyEffectValue records a slider-value observation for a feature.
// Unrecognized feature ids are ignored.
func (m *Mirror) ApplyEffectValue(feat protocol.FeatureID, value protocol.EffectValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.effectSlot(feat); s != nil {
		s.Value = value.Clamp()
	}
}

// effectSlot maps a FeatureID (toggle or value variant) to the
// corresponding EffectSetting field. Must be called with mu held.
func (m *Mirror) effectSlot(feat protocol.FeatureID) *EffectSetting {
	switch feat {
	case protocol.FeatureSurround, protocol.FeatureSurroundValue:
		return &m.snap.Surround
	case protocol.FeatureDialogPlus, protocol.FeatureDialogPlusValue:
		return &m.snap.DialogPlus
	case protocol.FeatureSmartVolume, protocol.FeatureSmartVolumeValue:
		return &m.snap.SmartVolume
	case protocol.FeatureCrystalizer, protocol.FeatureCrystalizerValue:
		return &m.snap.Crystalizer
	case protocol.FeatureBass, protocol.FeatureBassValue:
		return &m.snap.Bass
	default:
		return nil
	}
}

// ApplySbxMode records the SBX master-switch state.
func (m *Mirror) ApplySbxMode(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.SbxEnabled = enabled
}

// ApplyScoutMode records the Scout Mode state.
func (m *Mirror) ApplyScoutMode(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.ScoutMode = enabled
}

// ApplyDigitalFilter records the active DAC digital filter.
func (m *Mirror) ApplyDigitalFilter(f protocol.DigitalFilter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.DigitalFilter = f
	m.snap.HasDigitalFilter = true
}

// ApplyFirmware records a parsed firmware query result.
func (m *Mirror) ApplyFirmware(info protocol.FirmwareInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Firmware = info
	m.snap.HasFirmware = true
}

// StampRead records the unix timestamp of a successful
// read_device_state pass. LastReadUnixSeconds is non-decreasing: a
// timestamp older than the current one is ignored.
func (m *Mirror) StampRead(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := now.Unix()
	if m.snap.HasLastReadTimestamp && ts < m.snap.LastReadUnixSeconds {
		return
	}
	m.snap.LastReadUnixSeconds = ts
	m.snap.HasLastReadTimestamp = true
}

// ApplyEvent folds one parsed DeviceEvent into the mirror. Per
// spec.md §4.5's consistency rule, event-sourced updates always win
// over a stale optimistic command update — callers must route every
// listener event through this method rather than a command-ack path.
func (m *Mirror) ApplyEvent(ev protocol.DeviceEvent) {
	switch ev.Kind {
	case protocol.EventOutputChanged:
		m.ApplyOutput(ev.Output)
	case protocol.EventSbxModeChanged:
		m.ApplySbxMode(ev.Enabled)
	case protocol.EventScoutModeChanged:
		m.ApplyScoutMode(ev.Enabled)
	case protocol.EventEffectToggled:
		m.ApplyEffectToggle(ev.Feature, protocol.EffectState(ev.Enabled))
	case protocol.EventEffectValueChanged:
		m.ApplyEffectValue(ev.Feature, ev.Value)
	case protocol.EventDigitalFilterChanged:
		m.ApplyDigitalFilter(ev.Filter)
	case protocol.EventAudioConfigChanged:
		// Opaque observation (spec.md §9 Open Questions); nothing in the
		// snapshot currently represents it.
	}
}
