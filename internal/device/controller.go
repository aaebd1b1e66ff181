// Package device implements the public façade (DeviceController, C6)
// and background listener (C7) described in spec.md §4.6/§4.7,
// orchestrating the protocol, transport, arbiter and state packages.
package device

import (
	"log"
	"sync"
	"time"

	"g6ctl/internal/arbiter"
	"g6ctl/internal/protocol"
	"g6ctl/internal/state"
	"g6ctl/internal/transport"
)

// ConnectionState is the connection state machine from spec.md §4.6.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Disconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Disconnecting:
		return "Disconnecting"
	default:
		return "Unknown"
	}
}

const (
	connectRetries      = 3
	connectRetryBackoff = 500 * time.Millisecond
)

// audioFeatures enumerates every toggle/value feature id
// read_device_state polls on each synchronize pass.
var audioFeatures = []protocol.FeatureID{
	protocol.FeatureSurround, protocol.FeatureSurroundValue,
	protocol.FeatureDialogPlus, protocol.FeatureDialogPlusValue,
	protocol.FeatureSmartVolume, protocol.FeatureSmartVolumeValue,
	protocol.FeatureCrystalizer, protocol.FeatureCrystalizerValue,
	protocol.FeatureBass, protocol.FeatureBassValue,
}

// Controller is the public façade over the protocol engine: one
// instance owns the bus arbiter, the state mirror and the handle's
// connect/disconnect lifecycle for the process's duration.
type Controller struct {
	arb      *arbiter.Arbiter
	mirror   *state.Mirror
	listener *Listener

	mu        sync.Mutex
	connState ConnectionState
	handle    *transport.Handle
}

// New constructs a disconnected Controller. The listener goroutine is
// not started until the first successful Connect.
func New() *Controller {
	arb := arbiter.New()
	mirror := state.New()
	return &Controller{
		arb:      arb,
		mirror:   mirror,
		listener: newListener(arb, mirror),
	}
}

// State returns a value-copy of the current settings snapshot.
func (c *Controller) State() state.SettingsSnapshot {
	return c.mirror.Get()
}

// ConnectionState reports the controller's current connection state.
func (c *Controller) ConnectionState() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connState
}

func (c *Controller) setConnState(s ConnectionState) {
	c.mu.Lock()
	c.connState = s
	c.mu.Unlock()
}

func (c *Controller) isConnected() bool {
	return c.ConnectionState() == Connected
}

// Subscribe registers a non-blocking event-notification channel.
func (c *Controller) Subscribe() <-chan struct{} {
	return c.listener.Subscribe()
}

// ListDevices enumerates USB devices for diagnostics; it does not
// require an open connection.
func (c *Controller) ListDevices() ([]transport.DeviceInfo, error) {
	return transport.Enumerate()
}

// Connect drives Disconnected→Connecting→{Connected,Disconnected}, per
// spec.md §4.6: up to 3 enumeration-refresh attempts spaced 500ms
// apart. On success it starts the listener (idempotent) and calls
// Synchronize. On exhausted retries it returns the last connection
// error and leaves the controller Disconnected.
func (c *Controller) Connect() error {
	c.setConnState(Connecting)

	var lastErr error
	for attempt := 0; attempt < connectRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(connectRetryBackoff)
		}

		handle, err := transport.OpenControlInterface()
		if err != nil {
			lastErr = err
			log.Printf("device: connect attempt %d/%d failed: %v", attempt+1, connectRetries, err)
			continue
		}

		c.mu.Lock()
		c.handle = handle
		c.mu.Unlock()
		c.arb.SetHandle(handle)
		c.mirror.SetConnected(true)
		c.setConnState(Connected)
		c.listener.Start()

		if err := c.Synchronize(); err != nil {
			log.Printf("device: post-connect synchronize failed: %v", err)
		}
		return nil
	}

	c.setConnState(Disconnected)
	return lastErr
}

// Disconnect releases the handle. The listener is not stopped — it
// idles, observing a missing handle, for the remainder of the process
// (spec.md §4.6/§9).
func (c *Controller) Disconnect() error {
	c.setConnState(Disconnecting)

	c.mu.Lock()
	h := c.handle
	c.handle = nil
	c.mu.Unlock()

	c.arb.SetHandle(nil)
	c.mirror.SetConnected(false)
	c.setConnState(Disconnected)

	if h == nil {
		return nil
	}
	return h.Close()
}

// ReadDeviceState issues the full read schedule (firmware, output,
// gaming modes, every tracked audio feature) and aggregates results
// into the mirror. A read that fails to match leaves that field at
// its prior value rather than reverting to a default. The read
// timestamp is stamped once the schedule completes.
func (c *Controller) ReadDeviceState() error {
	if !c.isConnected() {
		return ErrNotConnected
	}

	c.readFirmware()
	c.readOutput()
	c.readGamingModes()
	for _, feat := range audioFeatures {
		c.readAudioFeature(feat)
	}

	c.mirror.StampRead(time.Now())
	return nil
}

// Synchronize is ReadDeviceState with failure-logging: on error the
// mirror is left untouched and no defaults are written to the device.
func (c *Controller) Synchronize() error {
	if err := c.ReadDeviceState(); err != nil {
		log.Printf("device: synchronize failed: %v", err)
		return err
	}
	return nil
}

func (c *Controller) readFirmware() {
	resp, err := c.arb.Transact([]protocol.Frame{protocol.EncodeFirmwareASCIIQuery()}, byte(protocol.FamilyFirmwareQuery))
	if err != nil {
		log.Printf("device: firmware read failed: %v", err)
		return
	}
	parsed, err := protocol.DecodeResponse(resp)
	if err != nil {
		log.Printf("device: firmware decode failed: %v", err)
		return
	}
	if parsed.Kind == protocol.ResponseFirmware {
		c.mirror.ApplyFirmware(parsed.Firmware)
	}
}

func (c *Controller) readOutput() {
	resp, err := c.arb.Transact([]protocol.Frame{protocol.EncodeOutputConfigRead()}, byte(protocol.FamilyRouting))
	if err != nil {
		log.Printf("device: output read failed: %v", err)
		return
	}
	parsed, err := protocol.DecodeResponse(resp)
	if err != nil {
		log.Printf("device: output decode failed: %v", err)
		return
	}
	if parsed.Kind == protocol.ResponseOutput {
		c.mirror.ApplyOutput(parsed.Output)
	}
}

// readGamingModes reuses EventParser: the gaming-mode read response
// shares its wire shape with the unsolicited gaming report event
// (spec.md §9 "Event vs ack conflation").
func (c *Controller) readGamingModes() {
	resp, err := c.arb.Transact([]protocol.Frame{protocol.EncodeGamingModeRead()}, byte(protocol.FamilyGaming))
	if err != nil {
		log.Printf("device: gaming mode read failed: %v", err)
		return
	}
	for _, ev := range protocol.ParseEvents(resp) {
		c.mirror.ApplyEvent(ev)
	}
}

func (c *Controller) readAudioFeature(feat protocol.FeatureID) {
	resp, err := c.arb.Transact([]protocol.Frame{protocol.EncodeAudioEffectRead(feat)}, byte(protocol.FamilyAudioControl))
	if err != nil {
		log.Printf("device: audio feature %s read failed: %v", feat, err)
		return
	}
	parsed, err := protocol.DecodeResponse(resp)
	if err != nil || parsed.Kind != protocol.ResponseEffect {
		return
	}
	if feat.IsToggle() {
		c.mirror.ApplyEffectToggle(feat, parsed.EffectState)
	} else if feat.IsSlider() {
		c.mirror.ApplyEffectValue(feat, parsed.EffectValue)
	}
}

// ToggleOutput flips the routed output based on the mirror's current
// value and issues the set+commit pair. The mirror itself is updated
// only by the listener observing the device's OutputChanged event,
// not optimistically here (spec.md §4.6).
func (c *Controller) ToggleOutput() error {
	if !c.isConnected() {
		return ErrNotConnected
	}
	snap := c.mirror.Get()
	target := protocol.OutputHeadphones
	if snap.Output.Known && snap.Output.Device == protocol.OutputHeadphones {
		target = protocol.OutputSpeakers
	}
	_, err := c.arb.Transact([]protocol.Frame{
		protocol.EncodeSetOutput(target),
		protocol.EncodeCommitOutput(),
	}, 0)
	return err
}

// writeAudioToggle sends the toggle DATA frame followed by a READ
// verify, applying the readback to the mirror on success.
func (c *Controller) writeAudioToggle(feat protocol.FeatureID, st protocol.EffectState) error {
	if _, err := c.arb.Transact([]protocol.Frame{protocol.EncodeSetAudioToggle(feat, st)}, 0); err != nil {
		return err
	}
	resp, err := c.arb.Transact([]protocol.Frame{protocol.EncodeAudioWriteVerifyRead(feat)}, byte(protocol.FamilyAudioControl))
	if err != nil {
		return err
	}
	parsed, err := protocol.DecodeResponse(resp)
	if err != nil {
		// DecodeError: logged, not surfaced (spec.md §7).
		log.Printf("device: toggle verify decode failed for %s: %v", feat, err)
		return nil
	}
	if parsed.Kind == protocol.ResponseEffect {
		c.mirror.ApplyEffectToggle(feat, parsed.EffectState)
	}
	return nil
}

// writeAudioValue sends the value DATA frame followed by a READ
// verify, applying the readback to the mirror on success.
func (c *Controller) writeAudioValue(feat protocol.FeatureID, value protocol.EffectValue) error {
	if _, err := c.arb.Transact([]protocol.Frame{protocol.EncodeSetAudioValue(feat, value)}, 0); err != nil {
		return err
	}
	resp, err := c.arb.Transact([]protocol.Frame{protocol.EncodeAudioWriteVerifyRead(feat)}, byte(protocol.FamilyAudioControl))
	if err != nil {
		return err
	}
	parsed, err := protocol.DecodeResponse(resp)
	if err != nil {
		log.Printf("device: value verify decode failed for %s: %v", feat, err)
		return nil
	}
	if parsed.Kind == protocol.ResponseEffect {
		c.mirror.ApplyEffectValue(feat, parsed.EffectValue)
	}
	return nil
}

// setEffect is the shared implementation for Surround, Crystalizer,
// Smart Volume and Dialog Plus: two DATA+READ pairs, one for the
// toggle and one for the value.
func (c *Controller) setEffect(toggleFeat, valueFeat protocol.FeatureID, st protocol.EffectState, value protocol.EffectValue) error {
	if !c.isConnected() {
		return ErrNotConnected
	}
	if !value.Valid() {
		return &ValidationError{Field: valueFeat.String(), Value: int(value)}
	}
	if err := c.writeAudioToggle(toggleFeat, st); err != nil {
		return err
	}
	return c.writeAudioValue(valueFeat, value)
}

// SetSurround enables/disables Surround and writes its value.
func (c *Controller) SetSurround(st protocol.EffectState, value protocol.EffectValue) error {
	return c.setEffect(protocol.FeatureSurround, protocol.FeatureSurroundValue, st, value)
}

// SetCrystalizer enables/disables Crystalizer and writes its value.
func (c *Controller) SetCrystalizer(st protocol.EffectState, value protocol.EffectValue) error {
	return c.setEffect(protocol.FeatureCrystalizer, protocol.FeatureCrystalizerValue, st, value)
}

// SetSmartVolume enables/disables Smart Volume and writes its value.
func (c *Controller) SetSmartVolume(st protocol.EffectState, value protocol.EffectValue) error {
	return c.setEffect(protocol.FeatureSmartVolume, protocol.FeatureSmartVolumeValue, st, value)
}

// SetDialogPlus enables/disables Dialog Plus and writes its value.
func (c *Controller) SetDialogPlus(st protocol.EffectState, value protocol.EffectValue) error {
	return c.setEffect(protocol.FeatureDialogPlus, protocol.FeatureDialogPlusValue, st, value)
}

// SetBass is special-cased to match the device's reference behavior
// (spec.md §4.6): the toggle is sent alone, with no accompanying
// value write, and the slider is written via the single-frame
// (0x11,0x08) report rather than a DATA+READ pair.
func (c *Controller) SetBass(st protocol.EffectState, value protocol.EffectValue) error {
	if !c.isConnected() {
		return ErrNotConnected
	}
	if !value.Valid() {
		return &ValidationError{Field: protocol.FeatureBassValue.String(), Value: int(value)}
	}
	if err := c.writeAudioToggle(protocol.FeatureBass, st); err != nil {
		return err
	}
	if _, err := c.arb.Transact([]protocol.Frame{protocol.EncodeBassValueSingleFrame(value)}, 0); err != nil {
		return err
	}
	c.mirror.ApplyEffectValue(protocol.FeatureBassValue, value.Clamp())
	return nil
}

// SetSbxMode enables/disables the SBX master switch.
func (c *Controller) SetSbxMode(enabled bool) error {
	if !c.isConnected() {
		return ErrNotConnected
	}
	frames := []protocol.Frame{
		protocol.EncodeGamingData(protocol.GamingSbxMode, protocol.EffectState(enabled)),
		protocol.EncodeGamingCommit(),
	}
	if _, err := c.arb.Transact(frames, 0); err != nil {
		return err
	}
	c.mirror.ApplySbxMode(enabled)
	return nil
}

// SetScoutMode enables/disables Scout Mode.
func (c *Controller) SetScoutMode(enabled bool) error {
	if !c.isConnected() {
		return ErrNotConnected
	}
	frames := []protocol.Frame{
		protocol.EncodeGamingData(protocol.GamingScoutMode, protocol.EffectState(enabled)),
		protocol.EncodeGamingCommit(),
	}
	if _, err := c.arb.Transact(frames, 0); err != nil {
		return err
	}
	c.mirror.ApplyScoutMode(enabled)
	return nil
}

// SetDigitalFilter selects the DAC's interpolation filter. The write
// format is experimental (spec.md §9 Open Questions); no read-verify
// is attempted and the mirror is updated optimistically.
func (c *Controller) SetDigitalFilter(filter protocol.DigitalFilter) error {
	if !c.isConnected() {
		return ErrNotConnected
	}
	if _, err := c.arb.Transact([]protocol.Frame{protocol.EncodeDigitalFilterWrite(filter)}, 0); err != nil {
		return err
	}
	c.mirror.ApplyDigitalFilter(filter)
	return nil
}
