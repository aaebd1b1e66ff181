package protocol

// EventKind tags the variant held by a DeviceEvent.
type EventKind int

const (
	EventOutputChanged EventKind = iota
	EventSbxModeChanged
	EventScoutModeChanged
	EventEffectToggled
	EventEffectValueChanged
	EventDigitalFilterChanged
	EventAudioConfigChanged
)

// DeviceEvent is one unsolicited state-change notification parsed from
// a frame the device emitted on its own (button press, knob twist).
// Only the fields relevant to Kind are meaningful.
type DeviceEvent struct {
	Kind EventKind

	Output  OutputDevice
	Enabled bool
	Feature FeatureID
	Value   EffectValue
	Filter  DigitalFilter
	Unknown byte
}

// ParseEvents interprets an unsolicited frame (one received while no
// transaction is in flight) as zero or more DeviceEvents, per the table
// in spec.md §4.2. Frames matching no known shape produce no events and
// are silently dropped — this never errors.
func ParseEvents(f Frame) []DeviceEvent {
	switch f[1] {
	case byte(FamilyRouting):
		return parseRoutingEvent(f)
	case byte(FamilyGaming):
		return parseGamingEvent(f)
	case byte(FamilyAudioControl):
		return parseAudioEffectEvent(f)
	case byte(FamilyDigitalFilter):
		return parseDigitalFilterEvent(f)
	case byte(FamilyAudioConfig):
		return parseAudioConfigEvent(f)
	default:
		return nil
	}
}

// parseRoutingEvent matches "0x2C, 0x05, 0x01, v @ byte4".
func parseRoutingEvent(f Frame) []DeviceEvent {
	if f[2] != 0x05 || f[3] != 0x01 {
		return nil
	}
	v := f[4]
	if !ValidOutputDevice(v) {
		return nil
	}
	return []DeviceEvent{{Kind: EventOutputChanged, Output: OutputDevice(v)}}
}

// parseGamingEvent matches the gaming-report shape
// "0x26, 0x0B, 0x08, 0xFF, 0xFF, m @ byte6" (both bits always reported
// together) and the DATA-echo shape "0x26, 0x05, 0x07, …" (scanned for
// a [feat, 0x00, v] subpattern, first match wins).
func parseGamingEvent(f Frame) []DeviceEvent {
	if f[2] == 0x0B && f[3] == 0x08 && f[4] == 0xFF && f[5] == 0xFF {
		m := f[6]
		return []DeviceEvent{
			{Kind: EventSbxModeChanged, Enabled: m&0x01 != 0},
			{Kind: EventScoutModeChanged, Enabled: m&0x02 != 0},
		}
	}
	if f[2] == 0x05 && f[3] == 0x07 {
		for i := 2; i+2 < len(f); i++ {
			feat, mid, v := f[i], f[i+1], f[i+2]
			if mid != 0x00 {
				continue
			}
			switch GamingFeatureID(feat) {
			case GamingSbxMode:
				return []DeviceEvent{{Kind: EventSbxModeChanged, Enabled: v == 0x01}}
			case GamingScoutMode:
				return []DeviceEvent{{Kind: EventScoutModeChanged, Enabled: v == 0x01}}
			}
		}
	}
	return nil
}

// parseAudioEffectEvent matches
// "0x11, 0x08, 0x01, 0x00, 0x96, feat @ byte6, float @ 7..10".
func parseAudioEffectEvent(f Frame) []DeviceEvent {
	if f[2] != 0x08 || f[3] != 0x01 || f[4] != 0x00 || f[5] != 0x96 {
		return nil
	}
	feat := FeatureID(f[6])
	value := bytesToFloat32(f[7:11])
	switch {
	case feat.IsToggle():
		enabled := EffectValueFromFloat32(value) != 0 || value != 0
		return []DeviceEvent{{Kind: EventEffectToggled, Feature: feat, Enabled: enabled}}
	case feat.IsSlider():
		return []DeviceEvent{{Kind: EventEffectValueChanged, Feature: feat, Value: EffectValueFromFloat32(value)}}
	default:
		return nil
	}
}

// parseDigitalFilterEvent matches "0x6C, 0x03, 0x01, v @ byte4".
func parseDigitalFilterEvent(f Frame) []DeviceEvent {
	if f[2] != 0x03 || f[3] != 0x01 {
		return nil
	}
	v := f[4]
	if !ValidDigitalFilter(v) {
		return nil
	}
	return []DeviceEvent{{Kind: EventDigitalFilterChanged, Filter: DigitalFilter(v)}}
}

// parseAudioConfigEvent matches "0x3C, _, _, _, _, v @ byte5". Family
// 0x3C ("AudioConfig") is observed only as an event; its semantics are
// unknown and retained as opaque (spec.md §9 Open Questions).
func parseAudioConfigEvent(f Frame) []DeviceEvent {
	return []DeviceEvent{{Kind: EventAudioConfigChanged, Unknown: f[5]}}
}
