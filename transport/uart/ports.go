package uart

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name    string
	VIDPID  string // "VVVV:PPPP" for USB ports
	Serial  string
	Product string
	IsUSB   bool
	// Likely is set for USB serial bridges and boards commonly wired to a
	// light sensor.
	Likely bool
}

// PortFilter drops ports from discovery results.
type PortFilter struct {
	// Blocklist holds VID:PID pairs, case-insensitive.
	Blocklist []string
	// IgnorePaths holds device paths, compared after cleaning.
	IgnorePaths []string
}

// likelyPatterns match USB serial adapters by device name.
var likelyPatterns = []string{
	"usbserial",      // FTDI and similar USB-serial adapters
	"slab_usbtouart", // Silicon Labs CP210x
	"usbmodem",       // Arduino and similar devices
	"ttyusb",
	"ttyacm",
}

// DiscoverPorts lists serial ports with USB metadata where the platform
// provides it, likely adapters first.
func DiscoverPorts(filter PortFilter) ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("uart: enumerate ports: %w", err)
	}
	return filterPorts(details, filter), nil
}

func filterPorts(details []*enumerator.PortDetails, filter PortFilter) []PortInfo {
	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		info := PortInfo{
			Name:    d.Name,
			IsUSB:   d.IsUSB,
			Serial:  d.SerialNumber,
			Product: d.Product,
		}
		if d.IsUSB && d.VID != "" && d.PID != "" {
			info.VIDPID = strings.ToUpper(d.VID + ":" + d.PID)
		}
		if info.VIDPID != "" && isBlocked(info.VIDPID, filter.Blocklist) {
			continue
		}
		if isPathIgnored(info.Name, filter.IgnorePaths) {
			continue
		}
		info.Likely = isLikelyAdapter(info)
		out = append(out, info)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Likely != out[j].Likely {
			return out[i].Likely
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func isBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

func isPathIgnored(path string, ignore []string) bool {
	clean := filepath.Clean(path)
	for _, p := range ignore {
		if p != "" && filepath.Clean(p) == clean {
			return true
		}
	}
	return false
}

func isLikelyAdapter(info PortInfo) bool {
	name := strings.ToLower(info.Name)
	for _, pattern := range likelyPatterns {
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return info.IsUSB
}
