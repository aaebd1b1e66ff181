package device

import (
	"sync"
	"testing"
	"time"

	"g6ctl/internal/arbiter"
	"g6ctl/internal/protocol"
	"g6ctl/internal/state"
	"g6ctl/internal/transport"
)

// fakeBus is an in-memory stand-in for *transport.Handle, letting
// Controller's logic be exercised without real USB hardware.
type fakeBus struct {
	mu      sync.Mutex
	written []protocol.Frame
	queue   []protocol.Frame
}

func (f *fakeBus) Write(fr protocol.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, fr)
	return nil
}

func (f *fakeBus) Read(timeout time.Duration) (protocol.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return protocol.Frame{}, transport.ErrTimeout
	}
	fr := f.queue[0]
	f.queue = f.queue[1:]
	return fr, nil
}

func (f *fakeBus) enqueue(fr protocol.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fr)
}

func (f *fakeBus) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

// newTestController wires a Controller directly to a fakeBus, bypassing
// Connect (and therefore real USB enumeration), and marks it Connected.
func newTestController() (*Controller, *fakeBus) {
	arb := arbiter.New()
	mirror := state.New()
	bus := &fakeBus{}
	arb.SetHandle(bus)

	c := &Controller{
		arb:      arb,
		mirror:   mirror,
		listener: newListener(arb, mirror),
	}
	c.setConnState(Connected)
	mirror.SetConnected(true)
	return c, bus
}

// outputResponseFrame builds a (0x2C, 0x05) output-report response frame.
func outputResponseFrame(out protocol.OutputDevice) protocol.Frame {
	var f protocol.Frame
	f[0], f[1], f[2] = protocol.FramePrefix, byte(protocol.FamilyRouting), 0x05
	f[4] = byte(out)
	return f
}

// effectResponseFrame builds a (0x11, 0x08) audio effect report response
// frame for feat carrying frac as its little-endian float32 value.
func effectResponseFrame(feat protocol.FeatureID, frac float32) protocol.Frame {
	var f protocol.Frame
	f[0], f[1], f[2] = protocol.FramePrefix, byte(protocol.FamilyAudioControl), 0x08
	f[6] = byte(feat)
	v := protocol.EncodeSetAudioValue(feat, protocol.EffectValueFromFloat32(frac))
	copy(f[7:11], v[6:10])
	return f
}

func TestControllerOperationsRequireConnection(t *testing.T) {
	c := New()
	if err := c.ToggleOutput(); err != ErrNotConnected {
		t.Fatalf("ToggleOutput: got %v, want ErrNotConnected", err)
	}
	if err := c.SetSbxMode(true); err != ErrNotConnected {
		t.Fatalf("SetSbxMode: got %v, want ErrNotConnected", err)
	}
	if err := c.ReadDeviceState(); err != ErrNotConnected {
		t.Fatalf("ReadDeviceState: got %v, want ErrNotConnected", err)
	}
}

func TestSetEffectRejectsOutOfRangeValue(t *testing.T) {
	c, b := newTestController()

	err := c.SetSurround(protocol.Enabled, protocol.EffectValue(150))
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("got %v (%T), want *ValidationError", err, err)
	}
	if b.writeCount() != 0 {
		t.Fatal("an invalid value must fail before any I/O is attempted")
	}
}

func TestToggleOutputDoesNotUpdateMirrorOptimistically(t *testing.T) {
	c, b := newTestController()
	c.mirror.ApplyOutput(protocol.OutputSpeakers)

	if err := c.ToggleOutput(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.writeCount() != 2 {
		t.Fatalf("expected a set+commit pair, got %d writes", b.writeCount())
	}
	if got := c.mirror.Get().Output.Device; got != protocol.OutputSpeakers {
		t.Fatalf("mirror updated optimistically: got %v, want unchanged Speakers (listener-only update)", got)
	}
}

func TestSetBassWritesToggleThenSingleFrameValue(t *testing.T) {
	c, b := newTestController()
	b.enqueue(effectResponseFrame(protocol.FeatureBass, 1.0))

	if err := c.SetBass(protocol.Enabled, protocol.EffectValue(70)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.writeCount() != 3 {
		t.Fatalf("expected toggle DATA + verify READ + single-frame value write, got %d", b.writeCount())
	}
	snap := c.mirror.Get()
	if snap.Bass.State != protocol.Enabled {
		t.Fatalf("bass toggle not applied: %+v", snap.Bass)
	}
	if snap.Bass.Value != 70 {
		t.Fatalf("bass value = %d, want 70", snap.Bass.Value)
	}
}

func TestSetSbxModeUpdatesMirrorOptimistically(t *testing.T) {
	c, b := newTestController()

	if err := c.SetSbxMode(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.writeCount() != 2 {
		t.Fatalf("expected data+commit pair, got %d writes", b.writeCount())
	}
	if !c.mirror.Get().SbxEnabled {
		t.Fatal("expected SbxEnabled to be optimistically set")
	}
}

func TestReadDeviceStateLeavesMirrorUnchangedOnTimeout(t *testing.T) {
	c, _ := newTestController()
	c.mirror.ApplyOutput(protocol.OutputHeadphones)

	// No frames enqueued: every Transact read will time out.
	if err := c.ReadDeviceState(); err != nil {
		t.Fatalf("ReadDeviceState returns nil even when individual reads fail: %v", err)
	}

	if got := c.mirror.Get().Output.Device; got != protocol.OutputHeadphones {
		t.Fatalf("a failed read must not clear or revert prior state: got %v", got)
	}
}

func TestReadDeviceStateAppliesOutputAndStampsRead(t *testing.T) {
	c, b := newTestController()
	// The firmware read runs first and discards any non-matching frame,
	// so it needs its own response queued ahead of the output report.
	var fw protocol.Frame
	fw[0], fw[1], fw[2] = protocol.FramePrefix, byte(protocol.FamilyFirmwareQuery), 0x10
	copy(fw[3:], "2.1.250903.1324")
	b.enqueue(fw)
	b.enqueue(outputResponseFrame(protocol.OutputHeadphones))

	if err := c.ReadDeviceState(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := c.mirror.Get()
	if !snap.Output.Known || snap.Output.Device != protocol.OutputHeadphones {
		t.Fatalf("output = %+v", snap.Output)
	}
	if !snap.HasLastReadTimestamp {
		t.Fatal("expected read timestamp to be stamped")
	}
}
