// Package transport owns the one piece of the stack allowed to touch
// real USB hardware: locating the G6's control interface, opening it,
// and moving HID report-id-framed 64-byte frames across it.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"

	"g6ctl/internal/protocol"
)

// VendorID and ProductID identify the Sound Blaster X G6.
const (
	VendorID  gousb.ID = 0x041E
	ProductID gousb.ID = 0x3256
)

// ControlInterface is the only interface number the device accepts
// protocol frames on; the G6 exposes two audio-class interfaces and
// two HID interfaces, and silently ignores commands sent to the rest.
const ControlInterface = 4

const reportID byte = 0x00

// Sentinel connection errors (spec.md §7).
var (
	ErrDeviceNotFound       = errors.New("transport: device not found")
	ErrInterfaceUnavailable = errors.New("transport: required interface not present")
	ErrOpenFailed           = errors.New("transport: failed to open device")
	ErrTimeout              = errors.New("transport: read timed out")
	ErrClosed               = errors.New("transport: handle is closed")
)

// TransportError wraps an underlying HID read/write failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// DeviceInfo describes one enumerated USB device/interface pair.
type DeviceInfo struct {
	VendorID        gousb.ID
	ProductID       gousb.ID
	InterfaceNumber int
	Path            string
	Manufacturer    string
	Product         string
}

// Handle is an open HID control-interface connection. It is scoped to
// a single connect/disconnect cycle; all fields are released together
// on Close and Close is safe to call more than once.
type Handle struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	cfg    *gousb.Config
	intf   *gousb.Interface
	epOut  *gousb.OutEndpoint
	epIn   *gousb.InEndpoint
	closed bool
}

// Enumerate lists every interface of every currently attached G6, not
// only ControlInterface. A
// fresh gousb.Context is opened and closed for the scan; enumeration
// handles are transient and never retained across calls (spec.md
// §4.3 "Reconnect hygiene").
func Enumerate() ([]DeviceInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var found []DeviceInfo
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == VendorID && desc.Product == ProductID
	})
	if err != nil {
		return nil, &TransportError{Op: "enumerate", Err: err}
	}
	defer func() {
		for _, d := range devs {
			d.Close()
		}
	}()

	for _, d := range devs {
		for _, cfgDesc := range d.Desc.Configs {
			for ifaceNum := range cfgDesc.Interfaces {
				info := DeviceInfo{
					VendorID:        VendorID,
					ProductID:       ProductID,
					InterfaceNumber: ifaceNum,
					Path:            fmt.Sprintf("bus%d/addr%d", d.Desc.Bus, d.Desc.Address),
				}
				if m, err := d.Manufacturer(); err == nil {
					info.Manufacturer = m
				}
				if p, err := d.Product(); err == nil {
					info.Product = p
				}
				found = append(found, info)
			}
		}
	}
	return found, nil
}

// EnumerateAll lists every USB device/interface pair attached to the
// host, regardless of vendor or product id — unlike Enumerate, which
// only ever returns the G6's interfaces. Used by discovery's
// host-wide device listing; callers match against VendorID/ProductID
// themselves to annotate which entries are the G6.
func EnumerateAll() ([]DeviceInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool { return true })
	if err != nil {
		return nil, &TransportError{Op: "enumerate_all", Err: err}
	}
	defer func() {
		for _, d := range devs {
			d.Close()
		}
	}()

	var found []DeviceInfo
	for _, d := range devs {
		for _, cfgDesc := range d.Desc.Configs {
			for ifaceNum := range cfgDesc.Interfaces {
				info := DeviceInfo{
					VendorID:        d.Desc.Vendor,
					ProductID:       d.Desc.Product,
					InterfaceNumber: ifaceNum,
					Path:            fmt.Sprintf("bus%d/addr%d", d.Desc.Bus, d.Desc.Address),
				}
				if m, err := d.Manufacturer(); err == nil {
					info.Manufacturer = m
				}
				if p, err := d.Product(); err == nil {
					info.Product = p
				}
				found = append(found, info)
			}
		}
	}
	return found, nil
}

// OpenControlInterface performs a fresh enumeration and opens the
// device whose (vendor_id, product_id, interface_number) matches the
// G6's control tuple. Per spec.md §4.3, it fails with
// ErrInterfaceUnavailable rather than falling back to a different
// interface.
func OpenControlInterface() (*Handle, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(VendorID, ProductID)
	if err != nil {
		ctx.Close()
		return nil, &TransportError{Op: "open", Err: err}
	}
	if dev == nil {
		ctx.Close()
		return nil, ErrDeviceNotFound
	}

	if !hasInterface(dev, ControlInterface) {
		dev.Close()
		ctx.Close()
		return nil, ErrInterfaceUnavailable
	}

	dev.SetAutoDetach(true)

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		cfgNum = 1
	}
	cfg, err := dev.Config(cfgNum)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("%w: config: %v", ErrOpenFailed, err)
	}

	intf, err := cfg.Interface(ControlInterface, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("%w: claim interface %d: %v", ErrOpenFailed, ControlInterface, err)
	}

	epOut, epIn, err := endpoints(intf)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	return &Handle{ctx: ctx, dev: dev, cfg: cfg, intf: intf, epOut: epOut, epIn: epIn}, nil
}

func hasInterface(dev *gousb.Device, num int) bool {
	for _, cfgDesc := range dev.Desc.Configs {
		if _, ok := cfgDesc.Interfaces[num]; ok {
			return true
		}
	}
	return false
}

// endpoints picks the first usable OUT/IN interrupt endpoints on intf.
func endpoints(intf *gousb.Interface) (*gousb.OutEndpoint, *gousb.InEndpoint, error) {
	var outNum, inNum gousb.EndpointAddress
	var haveOut, haveIn bool
	for _, ep := range intf.Setting.Endpoints {
		if ep.Direction == gousb.EndpointDirectionOut && !haveOut {
			outNum, haveOut = ep.Address, true
		}
		if ep.Direction == gousb.EndpointDirectionIn && !haveIn {
			inNum, haveIn = ep.Address, true
		}
	}
	if !haveOut || !haveIn {
		return nil, nil, fmt.Errorf("control interface is missing an IN or OUT endpoint")
	}
	epOut, err := intf.OutEndpoint(int(outNum))
	if err != nil {
		return nil, nil, err
	}
	epIn, err := intf.InEndpoint(int(inNum))
	if err != nil {
		return nil, nil, err
	}
	return epOut, epIn, nil
}

// Write submits one 64-byte frame, prepending the HID report id 0x00
// the G6's wire protocol requires (spec.md §4.3 "Report-ID framing").
func (h *Handle) Write(f protocol.Frame) error {
	if h.closed {
		return ErrClosed
	}
	buf := make([]byte, protocol.FrameSize+1)
	buf[0] = reportID
	copy(buf[1:], f[:])

	if _, err := h.epOut.Write(buf); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// Read blocks for at most timeout waiting for one frame, stripping a
// leading HID report id 0x00 if present. Returns ErrTimeout if no
// frame arrives in time.
func (h *Handle) Read(timeout time.Duration) (protocol.Frame, error) {
	var frame protocol.Frame
	if h.closed {
		return frame, ErrClosed
	}

	buf := make([]byte, protocol.FrameSize+1)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	n, err := h.epIn.ReadContext(ctx, buf)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return frame, ErrTimeout
		}
		return frame, &TransportError{Op: "read", Err: err}
	}

	payload := buf[:n]
	if len(payload) > 0 && payload[0] == reportID {
		payload = payload[1:]
	}
	copy(frame[:], payload)
	return frame, nil
}

// Close releases the handle in reverse-acquisition order. Safe to call
// more than once and safe to call after a partial open failure.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if h.intf != nil {
		h.intf.Close()
	}
	if h.cfg != nil {
		h.cfg.Close()
	}
	if h.dev != nil {
		h.dev.Close()
	}
	if h.ctx != nil {
		h.ctx.Close()
	}
	return nil
}
