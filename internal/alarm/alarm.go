// Package alarm evaluates temperature readings against critical limits.
package alarm

import (
	"fmt"
	"math"
)

// Alarm is a threshold crossing for one subsystem.
type Alarm struct {
	Name  string
	Value float64
	Limit float64
}

// String renders the alarm with rounded values, e.g. "CPU crit t 91/90 °C".
func (a Alarm) String() string {
	return fmt.Sprintf("%s crit t %2.0f/%2.0f °C", a.Name, math.Round(a.Value), math.Round(a.Limit))
}

// Check reports an alarm when value >= limit. The comparison uses the raw
// values; rounding only happens in String.
func Check(name string, value, limit float64) (Alarm, bool) {
	if value >= limit {
		return Alarm{Name: name, Value: value, Limit: limit}, true
	}
	return Alarm{}, false
}

// Limits are the critical temperatures in °C.
type Limits struct {
	CPU  float64 `yaml:"cpu"`
	Disk float64 `yaml:"disk"`
	// GPUDefault applies when the device does not report a critical value.
	GPUDefault float64 `yaml:"gpu_default"`
	// GPUMargin is subtracted from the device-reported critical value.
	GPUMargin float64 `yaml:"gpu_margin"`
}

// DefaultLimits returns the stock thresholds.
func DefaultLimits() Limits {
	return Limits{CPU: 90, Disk: 65, GPUDefault: 90, GPUMargin: 10}
}

// GPU derives the GPU limit from a device-reported critical temperature.
func (l Limits) GPU(critical float64, reported bool) float64 {
	if !reported || critical <= 0 {
		return l.GPUDefault
	}
	return critical - l.GPUMargin
}

// Reading is a temperature that may be unavailable this tick.
type Reading struct {
	Value float64
	OK    bool
}

// Readings groups the per-tick temperatures checked by Evaluate.
type Readings struct {
	CPU  Reading
	Disk Reading
	GPU  Reading
	// GPUCritical is the device-reported critical temperature, if any.
	GPUCritical Reading
}

// Evaluate checks GPU, disk and CPU in that order and returns the active
// alarms. Unavailable readings never alarm.
func Evaluate(limits Limits, r Readings) []Alarm {
	var alarms []Alarm
	add := func(name string, reading Reading, limit float64) {
		if !reading.OK {
			return
		}
		if a, ok := Check(name, reading.Value, limit); ok {
			alarms = append(alarms, a)
		}
	}
	add("GPU", r.GPU, limits.GPU(r.GPUCritical.Value, r.GPUCritical.OK))
	add("NVME", r.Disk, limits.Disk)
	add("CPU", r.CPU, limits.CPU)
	return alarms
}

// Strings formats alarms for a notification sink.
func Strings(alarms []Alarm) []string {
	out := make([]string, len(alarms))
	for i, a := range alarms {
		out[i] = a.String()
	}
	return out
}
