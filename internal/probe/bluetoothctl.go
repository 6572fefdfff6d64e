package probe

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

var (
	deviceLine  = regexp.MustCompile(`Device ([0-9A-F]{2}(?::[0-9A-F]{2}){5})`)
	batteryLine = regexp.MustCompile(`Battery Percentage:\s*0x[0-9a-fA-F]+\s*\((\d+)\)`)
)

// Bluetoothctl implements BluetoothClient with the bluetoothctl CLI.
type Bluetoothctl struct {
	// Timeout bounds each bluetoothctl invocation.
	Timeout time.Duration
	// ForceReload cycles the connection before reading the battery so
	// headsets that only report on connect refresh their level.
	ForceReload bool
}

// ConnectedDevice parses the first device from `bluetoothctl info`.
func (b Bluetoothctl) ConnectedDevice(ctx context.Context) (string, error) {
	out, err := b.run(ctx, "info")
	if err != nil {
		// bluetoothctl exits non-zero when nothing is connected.
		if _, ok := err.(*exec.ExitError); ok {
			return "", nil
		}
		return "", err
	}
	m := deviceLine.FindStringSubmatch(out)
	if m == nil {
		return "", nil
	}
	return m[1], nil
}

// BatteryLevel reads the BlueZ battery percentage for mac.
func (b Bluetoothctl) BatteryLevel(ctx context.Context, mac string) (float64, error) {
	if b.ForceReload {
		if _, err := b.run(ctx, "disconnect", mac); err != nil {
			return 0, fmt.Errorf("disconnecting %s: %w", mac, err)
		}
		if _, err := b.run(ctx, "connect", mac); err != nil {
			return 0, fmt.Errorf("reconnecting %s: %w", mac, err)
		}
	}
	out, err := b.run(ctx, "info", mac)
	if err != nil {
		return 0, err
	}
	return ParseBatteryPercentage(out)
}

// ParseBatteryPercentage extracts the level in [0, 1] from bluetoothctl
// info output.
func ParseBatteryPercentage(out string) (float64, error) {
	m := batteryLine.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("no battery percentage reported")
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("parsing battery percentage %q: %w", m[1], err)
	}
	return float64(pct) / 100, nil
}

func (b Bluetoothctl) run(ctx context.Context, args ...string) (string, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "bluetoothctl", args...).Output()
	if ctx.Err() == context.DeadlineExceeded {
		return "", ctx.Err()
	}
	return string(out), err
}
