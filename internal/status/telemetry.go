package status

import (
	"errors"
	"fmt"
	"time"

	"github.com/mdlayher/wifi"
	"github.com/shirou/gopsutil/v3/mem"
)

// Host is a sample of the telemetry carried in status messages.
type Host struct {
	RSSI   int    // dBm of the wireless link, 0 when there is none
	Memory uint64 // available memory in bytes
	Uptime string // formatted by FormatUptime
}

// Telemetry samples host health.
type Telemetry interface {
	Sample() Host
}

// HostTelemetry reads signal strength over nl80211 and memory through
// gopsutil.
type HostTelemetry struct {
	iface     string // empty selects the first associated station interface
	startTime time.Time
	now       func() time.Time
	memory    func() (uint64, error)
	signal    func(iface string) (int, error)
}

// NewHostTelemetry creates a sampler. Uptime is measured from startTime.
func NewHostTelemetry(startTime time.Time, iface string) *HostTelemetry {
	return &HostTelemetry{
		iface:     iface,
		startTime: startTime,
		now:       time.Now,
		memory:    availableMemory,
		signal:    stationSignal,
	}
}

// Sample reads the current telemetry. Unreadable sources report zero.
func (h *HostTelemetry) Sample() Host {
	out := Host{Uptime: FormatUptime(h.now().Sub(h.startTime))}
	if rssi, err := h.signal(h.iface); err == nil {
		out.RSSI = rssi
	}
	if m, err := h.memory(); err == nil {
		out.Memory = m
	}
	return out
}

// FormatUptime renders d as "<days>d <hours>h <minutes>m".
func FormatUptime(d time.Duration) string {
	d = d.Truncate(time.Minute)
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dd %dh %dm", days, h, m)
}

func availableMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("read memory: %w", err)
	}
	return vm.Available, nil
}

func stationSignal(iface string) (int, error) {
	c, err := wifi.New()
	if err != nil {
		return 0, fmt.Errorf("open nl80211: %w", err)
	}
	defer c.Close()

	ifis, err := c.Interfaces()
	if err != nil {
		return 0, fmt.Errorf("list wireless interfaces: %w", err)
	}
	return pickSignal(ifis, iface, c.StationInfo)
}

var errNoStation = errors.New("no associated wireless interface")

// pickSignal returns the signal of the first station-mode interface matching
// iface (any, when empty) that has an associated access point.
func pickSignal(ifis []*wifi.Interface, iface string, stations func(*wifi.Interface) ([]*wifi.StationInfo, error)) (int, error) {
	for _, ifi := range ifis {
		if ifi.Type != wifi.InterfaceTypeStation {
			continue
		}
		if iface != "" && ifi.Name != iface {
			continue
		}
		infos, err := stations(ifi)
		if err != nil {
			if iface != "" {
				return 0, fmt.Errorf("station info %s: %w", ifi.Name, err)
			}
			continue
		}
		if len(infos) > 0 {
			return infos[0].Signal, nil
		}
	}
	return 0, errNoStation
}
