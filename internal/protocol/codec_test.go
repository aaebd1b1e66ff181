package protocol

import "testing"

func TestEncodeFirmwareASCIIQuery(t *testing.T) {
	f := EncodeFirmwareASCIIQuery()
	want := []byte{0x5A, 0x07, 0x01, 0x02}
	for i, b := range want {
		if f[i] != b {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X", i, f[i], b)
		}
	}
	for i := len(want); i < FrameSize; i++ {
		if f[i] != 0 {
			t.Fatalf("byte %d = 0x%02X, want zero padding", i, f[i])
		}
	}
}

func TestEncodeSetOutput(t *testing.T) {
	f := EncodeSetOutput(OutputHeadphones)
	want := []byte{0x5A, 0x2C, 0x05, 0x00, 0x04}
	for i, b := range want {
		if f[i] != b {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X", i, f[i], b)
		}
	}
}

func TestEncodeSetAudioToggleRoundTrip(t *testing.T) {
	f := EncodeSetAudioToggle(FeatureSurround, Enabled)
	if f[1] != byte(FamilyDataControl) || f[2] != 0x07 || f[3] != 0x01 || f[4] != 0x96 || f[5] != byte(FeatureSurround) {
		t.Fatalf("unexpected header: %+v", f[:6])
	}
	v := bytesToFloat32(f[6:10])
	if v != 1.0 {
		t.Fatalf("toggle float = %v, want 1.0", v)
	}
}

func TestEncodeSetAudioValueClampsAndScales(t *testing.T) {
	f := EncodeSetAudioValue(FeatureSurroundValue, EffectValue(150))
	v := bytesToFloat32(f[6:10])
	if v != 1.0 {
		t.Fatalf("clamped value float = %v, want 1.0 (100%% clamp)", v)
	}
	f2 := EncodeSetAudioValue(FeatureSurroundValue, EffectValue(50))
	v2 := bytesToFloat32(f2[6:10])
	if v2 != 0.5 {
		t.Fatalf("value float = %v, want 0.5", v2)
	}
}

func TestDecodeResponseOutput(t *testing.T) {
	f := newFrame(byte(FamilyRouting), 0x05, 0x00, byte(OutputSpeakers))
	r, err := DecodeResponse(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Kind != ResponseOutput || r.Output != OutputSpeakers {
		t.Fatalf("got %+v", r)
	}
}

func TestDecodeResponseOutputInvalid(t *testing.T) {
	f := newFrame(byte(FamilyRouting), 0x05, 0x00, 0x99)
	_, err := DecodeResponse(f)
	if err == nil {
		t.Fatal("expected DecodeError for unexpected output code")
	}
	var de *DecodeError
	if !asDecodeError(err, &de) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
}

func TestDecodeResponseFirmwareASCII(t *testing.T) {
	tail := append([]byte{byte(FamilyFirmwareQuery), 0x10}, []byte(" 1.07.12 ")...)
	f := newFrame(tail...)
	r, err := DecodeResponse(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Kind != ResponseFirmware || r.Firmware.Version != "1.07.12" {
		t.Fatalf("got %+v", r)
	}
}

func TestDecodeResponseFirmwareEmptyIsError(t *testing.T) {
	f := newFrame(byte(FamilyFirmwareQuery), 0x10, 0x00)
	_, err := DecodeResponse(f)
	if err == nil {
		t.Fatal("expected error for empty firmware string")
	}
}

func TestDecodeResponseAudioEffectReport(t *testing.T) {
	v := float32Bytes(0.75)
	f := newFrame(byte(FamilyAudioControl), 0x08, 0x01, 0x00, 0x96, byte(FeatureSurroundValue), v[0], v[1], v[2], v[3])
	r, err := DecodeResponse(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Kind != ResponseEffect || r.Feature != FeatureSurroundValue || r.EffectValue != 75 {
		t.Fatalf("got %+v", r)
	}
}

func TestDecodeResponseUnknownShapeIsBinary(t *testing.T) {
	f := newFrame(byte(FamilyBatchControl), 0x01, 0x02, 0x03)
	r, err := DecodeResponse(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Kind != ResponseBinary {
		t.Fatalf("got Kind=%v, want ResponseBinary", r.Kind)
	}
}

func TestEffectValueClamp(t *testing.T) {
	cases := []struct {
		in   EffectValue
		want EffectValue
	}{
		{-5, 0},
		{0, 0},
		{50, 50},
		{100, 100},
		{150, 100},
	}
	for _, c := range cases {
		if got := c.in.Clamp(); got != c.want {
			t.Errorf("Clamp(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestEffectValueFromFloat32RoundTrip(t *testing.T) {
	for _, pct := range []EffectValue{0, 1, 25, 50, 99, 100} {
		f := pct.ToFloat32()
		back := EffectValueFromFloat32(f)
		if back != pct {
			t.Errorf("round trip %d -> %v -> %d", pct, f, back)
		}
	}
}

// asDecodeError avoids importing errors.As for a single concrete type.
func asDecodeError(err error, target **DecodeError) bool {
	de, ok := err.(*DecodeError)
	if !ok {
		return false
	}
	*target = de
	return true
}
