// Package discovery enumerates every attached USB device, marking the
// G6's control interface, and reports basic host telemetry for
// diagnostics.
package discovery

import (
	"fmt"
	"runtime"

	psutil "github.com/shirou/gopsutil/v3/cpu"
	psmem "github.com/shirou/gopsutil/v3/mem"

	"g6ctl/internal/transport"
)

// HostDeviceInfo describes one enumerated USB device/interface pair on
// the host, shaped for the /v1/devices API response. Matched reports whether this entry is the G6's control
// interface; ListUSBDevices returns every attached device so that a
// missing or misidentified G6 is visible in the same listing instead
// of producing an empty result.
type HostDeviceInfo struct {
	VendorID        string `json:"vendor_id"`
	ProductID       string `json:"product_id"`
	InterfaceNumber int    `json:"interface_number"`
	Path            string `json:"path"`
	Manufacturer    string `json:"manufacturer"`
	Product         string `json:"product"`
	Matched         bool   `json:"matched"`
}

// ListUSBDevices walks the host's full USB topology — every vendor and
// product id, not just the G6 — and annotates which (if any) entries
// match the G6's (vendor_id, product_id, control interface) tuple.
// Absence of a match is represented in the result, never as an error
// (spec.md §8 testable property 7).
func ListUSBDevices() ([]HostDeviceInfo, error) {
	infos, err := transport.EnumerateAll()
	if err != nil {
		return nil, fmt.Errorf("discovery: enumerate: %w", err)
	}

	devices := make([]HostDeviceInfo, 0, len(infos))
	for _, info := range infos {
		matched := info.VendorID == transport.VendorID &&
			info.ProductID == transport.ProductID &&
			info.InterfaceNumber == transport.ControlInterface
		devices = append(devices, HostDeviceInfo{
			VendorID:        fmt.Sprintf("0x%04X", uint16(info.VendorID)),
			ProductID:       fmt.Sprintf("0x%04X", uint16(info.ProductID)),
			InterfaceNumber: info.InterfaceNumber,
			Path:            info.Path,
			Manufacturer:    info.Manufacturer,
			Product:         info.Product,
			Matched:         matched,
		})
	}
	return devices, nil
}

// HostSummary is a point-in-time snapshot of host resource usage for
// diagnostics.
type HostSummary struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemUsedPct    float64 `json:"mem_used_percent"`
	GoVersion     string  `json:"go_version"`
}

// GetHostSummary samples CPU and memory usage once. Sampling errors
// leave the corresponding field at its zero value rather than failing
// the whole call — host telemetry is advisory, never load-bearing.
func GetHostSummary() HostSummary {
	summary := HostSummary{GoVersion: runtime.Version()}

	if pct, err := psutil.Percent(0, false); err == nil && len(pct) > 0 {
		summary.CPUPercent = pct[0]
	}
	if mem, err := psmem.VirtualMemory(); err == nil {
		summary.MemUsedPct = mem.UsedPercent
	}
	return summary
}
