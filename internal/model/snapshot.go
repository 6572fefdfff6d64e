package model

import (
	"time"

	"github.com/Dicklesworthstone/hardmon/internal/alarm"
)

// Clock is the wall-clock section of the panel.
type Clock struct {
	Local time.Time
	// UTCHour and ZoneHour are the hour in UTC and in the configured
	// secondary zone.
	UTCHour  int
	ZoneHour int
}

// CPU aggregates load, frequency tiers and temperature.
type CPU struct {
	Cores int
	// Load is busy cores over the last tick, on a [0, Cores] scale.
	Load     float64
	LoadAvg1 float64
	RatesOK  bool
	// FreqGHz lists frequency tiers from idle to busiest core; empty until
	// the frequency probe publishes.
	FreqGHz []float64
	TempC   float64
	HasTemp bool
}

// Memory in GiB.
type Memory struct {
	UsedGB    float64
	CachedGB  float64
	BuffersGB float64
	TotalGB   float64
	SwapGB    float64
	OK        bool
}

// GPU power and temperature from hwmon.
type GPU struct {
	Present   bool
	PowerW    float64
	PowerCapW float64
	TempC     float64
	// CritC is the device-reported critical temperature; valid when HasCrit.
	CritC   float64
	HasCrit bool
}

// Network throughput in MiB/s plus probe results.
type Network struct {
	RecvMBs    float64
	SendMBs    float64
	RatesOK    bool
	Ping       time.Duration
	HasPing    bool
	WlanIface  string
	WlanMbit   float64
	HasBitrate bool
}

// Disk throughput in MiB/s and drive temperature.
type Disk struct {
	ReadMBs  float64
	WriteMBs float64
	RatesOK  bool
	TempC    float64
	HasTemp  bool
}

// Battery from the power_supply sysfs class.
type Battery struct {
	Present      bool
	Charging     bool
	PowerW       float64
	ChargeWh     float64
	ChargeFullWh float64
}

// Bluetooth is the connected device and its battery.
type Bluetooth struct {
	Connected bool
	MAC       string
	// Level is in [0, 1].
	Level    float64
	HasLevel bool
}

// Env holds point-in-time desktop flags.
type Env struct {
	// KeyboardLayout is empty when unknown.
	KeyboardLayout string
	VPN            bool
	Bluetooth      Bluetooth
}

// Process is one entry of the top list, CPU summed over processes sharing
// a name.
type Process struct {
	Name string
	CPU  float64 // percent of one core
}

// Top lists the busiest process names.
type Top struct {
	Processes []Process
	// Active counts processes with non-zero CPU.
	Active int
	OK     bool
}

// Snapshot is one full reading, handed to the renderer. It is not modified
// after Tick returns it.
type Snapshot struct {
	Timestamp time.Time
	Period    time.Duration
	Clock     Clock
	CPU       CPU
	Memory    Memory
	GPU       GPU
	Network   Network
	Disk      Disk
	Battery   Battery
	Env       Env
	Top       Top
	Alarms    []alarm.Alarm
}

// AlarmStrings formats the active alarms.
func (s Snapshot) AlarmStrings() []string { return alarm.Strings(s.Alarms) }

// Zero returns an empty snapshot for initialization.
func Zero() Snapshot { return Snapshot{Timestamp: time.Now()} }
