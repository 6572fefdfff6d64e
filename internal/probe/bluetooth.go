package probe

import (
	"context"
	"time"
)

// BluetoothClient talks to the local Bluetooth stack.
type BluetoothClient interface {
	// ConnectedDevice returns the MAC of the connected device, or "" when
	// nothing is connected.
	ConnectedDevice(ctx context.Context) (string, error)
	// BatteryLevel returns the battery of mac in [0, 1]. It may disturb the
	// connection and must not be called every tick.
	BatteryLevel(ctx context.Context, mac string) (float64, error)
}

// BluetoothStatus is the published Bluetooth reading.
type BluetoothStatus struct {
	Connected bool
	MAC       string
	// Level is in [0, 1]; valid when HasLevel.
	Level    float64
	HasLevel bool
}

// BluetoothConfig controls polling.
type BluetoothConfig struct {
	// Period between connection checks.
	Period time.Duration
	// BatteryPeriod is the minimum age of a battery level before it is
	// queried again for a device that stayed connected.
	BatteryPeriod time.Duration
	// MaxDevices bounds the remembered device list.
	MaxDevices int
}

type btDevice struct {
	mac   string
	level float64
	// attempted gates queries; updated marks the last successful one.
	attempted time.Time
	updated   time.Time
}

// NewBluetoothProbe polls the connected device every Period. The battery
// is queried when a device connects and afterwards at most once per
// BatteryPeriod, whether or not the previous query succeeded. Levels of up
// to MaxDevices recently seen devices are remembered so a reconnecting
// device shows its last level immediately.
func NewBluetoothProbe(client BluetoothClient, cfg BluetoothConfig, opts ...Option) *Probe[BluetoothStatus] {
	if cfg.BatteryPeriod <= 0 {
		cfg.BatteryPeriod = 3 * time.Hour
	}
	if cfg.MaxDevices <= 0 {
		cfg.MaxDevices = 5
	}

	var (
		devices []*btDevice
		current *btDevice
	)
	lookup := func(mac string) *btDevice {
		for _, d := range devices {
			if d.mac == mac {
				return d
			}
		}
		if len(devices) >= cfg.MaxDevices {
			devices = devices[1:]
		}
		d := &btDevice{mac: mac}
		devices = append(devices, d)
		return d
	}

	p := New[BluetoothStatus]("bluetooth", cfg.Period, nil, opts...)
	p.fn = func(ctx context.Context) (BluetoothStatus, error) {
		mac, err := client.ConnectedDevice(ctx)
		if err != nil {
			return BluetoothStatus{}, err
		}
		if mac == "" {
			if current != nil {
				p.logger.Info("bluetooth device disconnected", "mac", current.mac)
			}
			current = nil
			return BluetoothStatus{}, nil
		}

		dev := lookup(mac)
		reconnected := current != dev
		if reconnected {
			p.logger.Info("bluetooth device connected", "mac", mac)
		}
		current = dev

		now := p.clock.Now()
		if reconnected || now.Sub(dev.attempted) >= cfg.BatteryPeriod {
			dev.attempted = now
			level, err := client.BatteryLevel(ctx, mac)
			if err != nil {
				p.logger.Debug("bluetooth battery query failed", "mac", mac, "error", err)
			} else {
				dev.level = level
				dev.updated = now
			}
		}
		return BluetoothStatus{
			Connected: true,
			MAC:       mac,
			Level:     dev.level,
			HasLevel:  !dev.updated.IsZero(),
		}, nil
	}
	return p
}
