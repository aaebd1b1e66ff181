package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Frame is a fixed 64-byte wire frame.
type Frame [FrameSize]byte

// DecodeError reports that a frame did not match any expected shape.
// Decode failures never panic and never overwrite known state; callers
// treat the affected field as unchanged (spec.md §7).
type DecodeError struct {
	Reason string
	Raw    Frame
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("protocol: decode failed: %s (frame family=0x%02X op=0x%02X)", e.Reason, e.Raw[1], e.Raw[2])
}

// newFrame builds a zero-padded 64-byte frame from the given tail bytes,
// which follow the constant 0x5A prefix.
func newFrame(tail ...byte) Frame {
	var f Frame
	f[0] = FramePrefix
	copy(f[1:], tail)
	return f
}

func float32Bytes(v float32) [4]byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	return b
}

func bytesToFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// --- Request builders (spec.md §6 exhaustive operation catalog) ---

// EncodeFirmwareASCIIQuery builds the "07 01 02" firmware version query.
func EncodeFirmwareASCIIQuery() Frame {
	return newFrame(byte(FamilyFirmwareQuery), 0x01, 0x02)
}

// EncodeFirmwareBinaryQuery builds the "07 10" firmware binary query.
func EncodeFirmwareBinaryQuery() Frame {
	return newFrame(byte(FamilyFirmwareQuery), 0x10)
}

// EncodeOutputConfigRead builds the "2C 01 01" output config read.
func EncodeOutputConfigRead() Frame {
	return newFrame(byte(FamilyRouting), 0x01, 0x01)
}

// EncodeAudioEffectRead builds the "11 03 01 96 <feat>" audio effect
// read. The 3-byte op carries the audio type tag 0x96.
func EncodeAudioEffectRead(feat FeatureID) Frame {
	return newFrame(byte(FamilyAudioControl), 0x03, 0x01, 0x96, byte(feat))
}

// EncodeEQBandRead builds the "11 03 01 95 <band>" EQ band read. EQ
// reads substitute 0x95 for the audio type tag.
func EncodeEQBandRead(band byte) Frame {
	return newFrame(byte(FamilyAudioControl), 0x03, 0x01, 0x95, band)
}

// EncodeGamingModeRead builds the "26 03 08 FF FF" gaming mode read.
func EncodeGamingModeRead() Frame {
	return newFrame(byte(FamilyGaming), 0x03, 0x08, 0xFF, 0xFF)
}

// EncodeSetOutput builds the "2C 05 00 <out>" set-output frame.
func EncodeSetOutput(out OutputDevice) Frame {
	return newFrame(byte(FamilyRouting), 0x05, 0x00, byte(out))
}

// EncodeCommitOutput builds the "2C 01 01" output commit frame.
func EncodeCommitOutput() Frame {
	return newFrame(byte(FamilyRouting), 0x01, 0x01)
}

// encodeAudioToggleFloat is shared by enable/disable DATA frames: the
// canonical write values are exactly 1.0 (Enabled) and 0.0 (Disabled),
// IEEE-754 little-endian (spec.md §3).
func encodeAudioToggleFloat(state EffectState) float32 {
	if state {
		return 1.0
	}
	return 0.0
}

// EncodeSetAudioToggle builds the "12 07 01 96 <feat> <f32 LE>" DATA
// frame that enables or disables an audio effect.
func EncodeSetAudioToggle(feat FeatureID, state EffectState) Frame {
	v := float32Bytes(encodeAudioToggleFloat(state))
	return newFrame(byte(FamilyDataControl), 0x07, 0x01, 0x96, byte(feat), v[0], v[1], v[2], v[3])
}

// EncodeSetAudioValue builds the "12 07 01 96 <feat> <f32 LE v/100>"
// DATA frame that writes a slider percentage.
func EncodeSetAudioValue(feat FeatureID, value EffectValue) Frame {
	v := float32Bytes(value.Clamp().ToFloat32())
	return newFrame(byte(FamilyDataControl), 0x07, 0x01, 0x96, byte(feat), v[0], v[1], v[2], v[3])
}

// EncodeBassValueSingleFrame builds the "11 08 01 00 96 19 <f32 LE>"
// single-frame Bass slider write (spec.md §4.6: Bass is special-cased).
func EncodeBassValueSingleFrame(value EffectValue) Frame {
	v := float32Bytes(value.Clamp().ToFloat32())
	return newFrame(byte(FamilyAudioControl), 0x08, 0x01, 0x00, 0x96, byte(FeatureBassValue), v[0], v[1], v[2], v[3])
}

// EncodeAudioWriteVerifyRead builds the READ frame used to confirm an
// audio DATA write took effect. Identical shape to EncodeAudioEffectRead.
func EncodeAudioWriteVerifyRead(feat FeatureID) Frame {
	return EncodeAudioEffectRead(feat)
}

// EncodeGamingData builds the "26 05 07 <feat> 00 <0x01|0x00> 00 00"
// SBX/Scout DATA frame.
func EncodeGamingData(feat GamingFeatureID, state EffectState) Frame {
	var v byte
	if state {
		v = 0x01
	}
	return newFrame(byte(FamilyGaming), 0x05, 0x07, byte(feat), 0x00, v, 0x00, 0x00)
}

// EncodeGamingCommit builds the "26 03 08 FF FF 00 00 00" SBX/Scout
// COMMIT frame.
func EncodeGamingCommit() Frame {
	return newFrame(byte(FamilyGaming), 0x03, 0x08, 0xFF, 0xFF, 0x00, 0x00, 0x00)
}

// EncodeDigitalFilterWrite builds the "6C 05 01 <filter>" digital
// filter selection frame.
//
// The write format is inferred by symmetry with the observed read
// format and has not been validated against hardware (spec.md §9 Open
// Questions) — verify before relying on it in production.
func EncodeDigitalFilterWrite(filter DigitalFilter) Frame {
	return newFrame(byte(FamilyDigitalFilter), 0x05, 0x01, byte(filter))
}

// --- Response decoding ---

// ResponseKind tags the variant held by a ParsedResponse.
type ResponseKind int

const (
	ResponseBinary ResponseKind = iota
	ResponseAscii
	ResponseFloat
	ResponseEffect
	ResponseOutput
	ResponseFirmware
)

// ParsedResponse is the result of decoding a response frame. Only the
// fields relevant to Kind are meaningful.
type ParsedResponse struct {
	Kind ResponseKind

	Ascii string

	Float float32

	Feature     FeatureID
	EffectState EffectState
	EffectValue EffectValue

	Output OutputDevice

	Firmware FirmwareInfo

	Raw Frame
}

// DecodeResponse decodes a response frame. Dispatch is driven by the
// pair (frame[1], frame[2]) per spec.md §4.1; unrecognized shapes
// degrade to ResponseBinary rather than failing, except where the
// matched shape itself is malformed (e.g. an empty firmware string),
// which is a genuine DecodeError.
func DecodeResponse(f Frame) (ParsedResponse, error) {
	fam, op := f[1], f[2]

	switch {
	case fam == byte(FamilyFirmwareQuery) && op == 0x10:
		return decodeFirmwareASCII(f)
	case fam == byte(FamilyAudioControl) && op == 0x08:
		return decodeAudioEffectReport(f)
	case fam == byte(FamilyRouting) && op == 0x05:
		return decodeOutputDevice(f)
	default:
		return ParsedResponse{Kind: ResponseBinary, Raw: f}, nil
	}
}

// decodeFirmwareASCII implements the (0x07, 0x10) policy: ASCII bytes
// from index 3 up to the first 0x00, trimmed, failing if empty.
func decodeFirmwareASCII(f Frame) (ParsedResponse, error) {
	end := 3
	for end < len(f) && f[end] != 0x00 {
		end++
	}
	version := strings.TrimSpace(string(f[3:end]))
	if version == "" {
		return ParsedResponse{}, &DecodeError{Reason: "empty firmware version string", Raw: f}
	}
	return ParsedResponse{
		Kind:     ResponseFirmware,
		Ascii:    version,
		Firmware: FirmwareInfo{Version: version},
		Raw:      f,
	}, nil
}

// decodeAudioEffectReport implements the (0x11, 0x08) policy: feature
// at byte 6, float at bytes 7-10 little-endian.
func decodeAudioEffectReport(f Frame) (ParsedResponse, error) {
	if len(f) < 11 {
		return ParsedResponse{}, &DecodeError{Reason: "audio effect report too short", Raw: f}
	}
	feat := FeatureID(f[6])
	value := bytesToFloat32(f[7:11])
	state := EffectState(math.Abs(float64(value)) > 0.0001)
	return ParsedResponse{
		Kind:        ResponseEffect,
		Feature:     feat,
		Float:       value,
		EffectState: state,
		EffectValue: EffectValueFromFloat32(value),
		Raw:         f,
	}, nil
}

// decodeOutputDevice implements the (0x2C, 0x05) policy: byte 4 must be
// 0x02 or 0x04.
func decodeOutputDevice(f Frame) (ParsedResponse, error) {
	v := f[4]
	if !ValidOutputDevice(v) {
		return ParsedResponse{}, &DecodeError{Reason: fmt.Sprintf("unexpected output code 0x%02X", v), Raw: f}
	}
	return ParsedResponse{Kind: ResponseOutput, Output: OutputDevice(v), Raw: f}, nil
}
