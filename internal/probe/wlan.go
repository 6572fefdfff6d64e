package probe

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/net"
)

// BitrateReader returns the current link bit rate of iface in bit/s.
type BitrateReader func(iface string) (int64, error)

// InterfaceLister returns candidate interface names.
type InterfaceLister func(ctx context.Context) ([]string, error)

// WlanStatus is the published wireless reading. Iface is empty when no
// wireless link was found.
type WlanStatus struct {
	Iface      string
	BitrateMbs float64
}

// NewWlanProbe reads the bit rate of the last interface that answered and
// rescans all interfaces when it stops answering.
func NewWlanProbe(read BitrateReader, list InterfaceLister, period time.Duration, opts ...Option) *Probe[WlanStatus] {
	var iface string
	p := New[WlanStatus]("wlan", period, nil, opts...)
	p.fn = func(ctx context.Context) (WlanStatus, error) {
		if iface != "" {
			if rate, err := read(iface); err == nil && rate > 0 {
				return WlanStatus{Iface: iface, BitrateMbs: float64(rate) / 1e6}, nil
			}
		}
		names, err := list(ctx)
		if err != nil {
			return WlanStatus{}, err
		}
		for _, name := range names {
			rate, err := read(name)
			if err != nil || rate <= 0 {
				continue
			}
			if name != iface {
				p.logger.Info("found wireless interface", "iface", name)
			}
			iface = name
			return WlanStatus{Iface: iface, BitrateMbs: float64(rate) / 1e6}, nil
		}
		iface = ""
		return WlanStatus{}, nil
	}
	return p
}

// SystemInterfaces lists interface names via gopsutil.
func SystemInterfaces(ctx context.Context) ([]string, error) {
	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ifaces))
	for _, i := range ifaces {
		names = append(names, i.Name)
	}
	return names, nil
}
