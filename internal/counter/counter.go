// Package counter holds cumulative counter snapshots and derives per-second
// rates from pairs of them.
//
// A Snapshot is a generic ordered mapping from field name to a cumulative
// uint64 value plus the time it was captured. The field set is whatever the
// raw source reported (or whatever was persisted), so the rate logic never
// depends on a platform-specific struct layout.
package counter

import (
	"sort"
	"time"
)

// MiB is the divisor used for MB/s display values.
const MiB = 1024 * 1024

// Snapshot is an immutable set of cumulative counters taken at one instant.
type Snapshot struct {
	names  []string
	values map[string]uint64
	time   time.Time
}

// New builds a Snapshot from values taken at t. Field order is sorted by
// name. The capture time is truncated to microseconds, the precision the
// persisted state file keeps.
func New(values map[string]uint64, t time.Time) Snapshot {
	names := make([]string, 0, len(values))
	copied := make(map[string]uint64, len(values))
	for name, v := range values {
		names = append(names, name)
		copied[name] = v
	}
	sort.Strings(names)
	return Snapshot{names: names, values: copied, time: t.Truncate(time.Microsecond)}
}

// IsZero reports whether the snapshot was never captured.
func (s Snapshot) IsZero() bool { return s.time.IsZero() && len(s.names) == 0 }

// Time returns the capture time.
func (s Snapshot) Time() time.Time { return s.time }

// Names returns the field names in order.
func (s Snapshot) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Value returns a field value and whether the field exists.
func (s Snapshot) Value(name string) (uint64, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Values returns a copy of the field mapping.
func (s Snapshot) Values() map[string]uint64 {
	out := make(map[string]uint64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Len returns the number of fields.
func (s Snapshot) Len() int { return len(s.names) }

// Elapsed returns curr.Time - prev.Time in seconds.
func Elapsed(prev, curr Snapshot) float64 {
	return curr.time.Sub(prev.time).Seconds()
}

// Rate returns (curr[field] - prev[field]) / elapsed seconds.
//
// Returns 0 when the elapsed time is not positive, when either snapshot is
// empty or when the field is missing on either side. A counter that went
// backwards yields a negative rate; callers decide how to display it.
func Rate(prev, curr Snapshot, field string) float64 {
	dt := Elapsed(prev, curr)
	if dt <= 0 || prev.IsZero() || curr.IsZero() {
		return 0
	}
	p, ok := prev.values[field]
	if !ok {
		return 0
	}
	c, ok := curr.values[field]
	if !ok {
		return 0
	}
	return delta(p, c) / dt
}

// BusyRate sums the per-second rate of every field in curr except the
// excluded ones ("idle" when none are given). For CPU snapshots captured in
// milliseconds, BusyRate/1000 is the load on a [0, cores] scale.
func BusyRate(prev, curr Snapshot, exclude ...string) float64 {
	if len(exclude) == 0 {
		exclude = []string{"idle"}
	}
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}

	dt := Elapsed(prev, curr)
	if dt <= 0 || prev.IsZero() || curr.IsZero() {
		return 0
	}
	var sum float64
	for _, name := range curr.names {
		if skip[name] {
			continue
		}
		p, ok := prev.values[name]
		if !ok {
			continue
		}
		sum += delta(p, curr.values[name])
	}
	return sum / dt
}

// MiBRate converts a bytes-per-second rate to MB/s.
func MiBRate(bytesPerSecond float64) float64 { return bytesPerSecond / MiB }

func delta(prev, curr uint64) float64 {
	if curr >= prev {
		return float64(curr - prev)
	}
	return -float64(prev - curr)
}
