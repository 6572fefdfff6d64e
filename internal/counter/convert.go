package counter

import (
	"math"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/net"
)

// FromCPUTimes converts aggregate CPU times (seconds) to a snapshot of
// per-state milliseconds.
func FromCPUTimes(times cpu.TimesStat, t time.Time) Snapshot {
	ms := func(seconds float64) uint64 {
		if seconds <= 0 {
			return 0
		}
		return uint64(math.Round(seconds * 1000))
	}
	return New(map[string]uint64{
		"user":      ms(times.User),
		"system":    ms(times.System),
		"idle":      ms(times.Idle),
		"nice":      ms(times.Nice),
		"iowait":    ms(times.Iowait),
		"irq":       ms(times.Irq),
		"softirq":   ms(times.Softirq),
		"steal":     ms(times.Steal),
		"guest":     ms(times.Guest),
		"guestNice": ms(times.GuestNice),
	}, t)
}

// FromDiskCounters sums per-device counters, skipping loop devices.
func FromDiskCounters(devices map[string]disk.IOCountersStat, t time.Time) Snapshot {
	var total disk.IOCountersStat
	for name, st := range devices {
		if strings.HasPrefix(name, "loop") {
			continue
		}
		total.ReadBytes += st.ReadBytes
		total.WriteBytes += st.WriteBytes
		total.ReadCount += st.ReadCount
		total.WriteCount += st.WriteCount
		total.ReadTime += st.ReadTime
		total.WriteTime += st.WriteTime
		total.IoTime += st.IoTime
	}
	return New(map[string]uint64{
		"read_bytes":  total.ReadBytes,
		"write_bytes": total.WriteBytes,
		"read_count":  total.ReadCount,
		"write_count": total.WriteCount,
		"read_time":   total.ReadTime,
		"write_time":  total.WriteTime,
		"io_time":     total.IoTime,
	}, t)
}

// FromNetCounters converts an all-interface aggregate.
func FromNetCounters(st net.IOCountersStat, t time.Time) Snapshot {
	return New(map[string]uint64{
		"bytes_sent":   st.BytesSent,
		"bytes_recv":   st.BytesRecv,
		"packets_sent": st.PacketsSent,
		"packets_recv": st.PacketsRecv,
		"errin":        st.Errin,
		"errout":       st.Errout,
		"dropin":       st.Dropin,
		"dropout":      st.Dropout,
	}, t)
}
