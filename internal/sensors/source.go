// Package sensors reads raw values from the operating system: cumulative
// counters through gopsutil, instantaneous readings from sysfs, and desktop
// state from helper commands. Every method fails independently; the monitor
// degrades the affected field and carries on.
package sensors

import (
	"context"

	"github.com/Dicklesworthstone/hardmon/internal/counter"
	"github.com/Dicklesworthstone/hardmon/internal/model"
)

// Source is the raw-reading boundary of the monitor.
type Source interface {
	CPUTimes(ctx context.Context) (counter.Snapshot, error)
	DiskCounters(ctx context.Context) (counter.Snapshot, error)
	NetCounters(ctx context.Context) (counter.Snapshot, error)

	CPUCount() int
	LoadAvg1(ctx context.Context) (float64, error)
	// CoreFrequencies returns per-core MHz.
	CoreFrequencies() ([]float64, error)
	// Temperature returns the hottest sensor of chip in °C.
	Temperature(ctx context.Context, chip string) (float64, error)

	Memory(ctx context.Context) (model.Memory, error)
	Battery() (model.Battery, error)
	GPU() (model.GPU, error)
	TopProcesses(ctx context.Context, n int) (model.Top, error)

	KeyboardLayout(ctx context.Context) (string, error)
	VPNConnected(ctx context.Context) (bool, error)
}

// Config names the machine-specific sensors.
type Config struct {
	// CPUChip and DiskChip prefix gopsutil temperature sensor keys, e.g.
	// "k10temp", "coretemp", "nvme".
	CPUChip  string `yaml:"cpu_chip"`
	DiskChip string `yaml:"disk_chip"`
	// BatteryPath is a power_supply directory, e.g. /sys/class/power_supply/BAT1.
	BatteryPath string `yaml:"battery_path"`
	// GPUDeviceID is matched against hwmon*/device/device, e.g. "0x7340".
	GPUDeviceID string `yaml:"gpu_device_id"`
	// HwmonRoot and CPURoot default to /sys/class/hwmon and
	// /sys/devices/system/cpu.
	HwmonRoot string `yaml:"hwmon_root"`
	CPURoot   string `yaml:"cpu_root"`
	// VPNInterfaces are substrings marking a VPN interface name.
	VPNInterfaces []string `yaml:"vpn_interfaces"`
	// Layouts names the primary and alternate keyboard groups.
	Layouts [2]string `yaml:"layouts"`
}

// DefaultConfig returns the stock sensor identifiers.
func DefaultConfig() Config {
	return Config{
		CPUChip:       "k10temp",
		DiskChip:      "nvme",
		BatteryPath:   "/sys/class/power_supply/BAT1",
		GPUDeviceID:   "0x7340",
		HwmonRoot:     "/sys/class/hwmon",
		CPURoot:       "/sys/devices/system/cpu",
		VPNInterfaces: []string{"ppp"},
		Layouts:       [2]string{"EN", "RU"},
	}
}
