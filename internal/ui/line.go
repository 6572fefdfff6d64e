package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Dicklesworthstone/hardmon/internal/model"
)

// DefaultTopSlots is the number of process slots printed.
const DefaultTopSlots = 2

// Line renders a snapshot as the single status line. Unavailable readings
// print as runs of '*' of the field width.
func Line(s model.Snapshot, topSlots int) string {
	return strings.Join([]string{
		CPU(s.CPU),
		Memory(s.Memory),
		GPU(s.GPU),
		Network(s.Network),
		Disk(s.Disk),
		Battery(s.Battery),
		Common(s.Clock, s.Env),
		Top(s.Top, topSlots),
	}, " ")
}

// Speed formats a MiB/s rate in three columns: clamped to [0, 999], one
// decimal up to 9.9 and whole numbers above.
func Speed(v float64) string {
	switch {
	case v < 0 || math.IsNaN(v):
		v = 0
	case v >= 1000:
		v = 999
	}
	if v <= 9.9 {
		return fmt.Sprintf("%3.1f", math.Round(v*10)/10)
	}
	return fmt.Sprintf("%3.0f", math.Round(v))
}

func stars(n int) string { return strings.Repeat("*", n) }

func num(ok bool, format string, v float64, width int) string {
	if !ok {
		return stars(width)
	}
	return fmt.Sprintf(format, v)
}

func CPU(c model.CPU) string {
	freqs := make([]string, len(c.FreqGHz))
	for i, f := range c.FreqGHz {
		freqs[i] = fmt.Sprintf("%3.1f", f)
	}
	return fmt.Sprintf("[%s %4.1f (%s) Ghz %s °C]",
		num(c.RatesOK, "%4.1f", math.Max(c.Load, 0), 4),
		c.LoadAvg1,
		strings.Join(freqs, " "),
		num(c.HasTemp, "%2.0f", c.TempC, 2),
	)
}

func Memory(m model.Memory) string {
	return fmt.Sprintf("[%s %s GB]",
		num(m.OK, "%3.1f", m.SwapGB, 3),
		num(m.OK, "%4.1f", m.UsedGB, 4),
	)
}

func GPU(g model.GPU) string {
	return fmt.Sprintf("[%s W %s °C]",
		num(g.Present, "%2.0f", g.PowerW, 2),
		num(g.Present, "%2.0f", g.TempC, 2),
	)
}

func speed(ok bool, v float64) string {
	if !ok {
		return stars(3)
	}
	return Speed(v)
}

func Network(n model.Network) string {
	ping := stars(4)
	if n.HasPing {
		ping = fmt.Sprintf("%4d", n.Ping.Round(time.Millisecond).Milliseconds())
	}
	return fmt.Sprintf("[%s MB/s %s MB/s %s ms %s MBit]",
		speed(n.RatesOK, n.RecvMBs),
		speed(n.RatesOK, n.SendMBs),
		ping,
		num(n.HasBitrate, "%3.0f", n.WlanMbit, 3),
	)
}

func Disk(d model.Disk) string {
	return fmt.Sprintf("[%s MB/s %s MB/s %s °C]",
		speed(d.RatesOK, d.ReadMBs),
		speed(d.RatesOK, d.WriteMBs),
		num(d.HasTemp, "%2.0f", d.TempC, 2),
	)
}

func Battery(b model.Battery) string {
	sign := " "
	if b.Present && b.Charging {
		sign = "+"
	}
	return fmt.Sprintf("[%s%s W %s Wh]",
		sign,
		num(b.Present, "%2.0f", b.PowerW, 2),
		num(b.Present, "%4.1f", b.ChargeWh, 4),
	)
}

// Common renders the clock and desktop flags.
func Common(c model.Clock, e model.Env) string {
	layout := e.KeyboardLayout
	if layout == "" {
		layout = stars(2)
	}
	vpn := " "
	if e.VPN {
		vpn = "V"
	}
	bt := "B(" + num(e.Bluetooth.HasLevel, "%3.1f", e.Bluetooth.Level, 3) + ")"
	if !e.Bluetooth.Connected {
		bt = strings.Repeat(" ", len(bt))
	}
	return fmt.Sprintf("[%s %02d/%02d/%s %s %s %s]",
		c.Local.Format("Mon 02.01.06"),
		c.UTCHour,
		c.ZoneHour,
		c.Local.Format("15:04:05"),
		layout,
		vpn,
		bt,
	)
}

// Top renders slots process entries as cores/name, padding missing slots.
func Top(t model.Top, slots int) string {
	if slots <= 0 {
		slots = DefaultTopSlots
	}
	entries := make([]string, slots)
	for i := range entries {
		var p model.Process
		if i < len(t.Processes) {
			p = t.Processes[i]
		}
		entries[i] = fmt.Sprintf("%s/%-10s", Speed(p.CPU/100), clip(p.Name, 10))
	}
	active := stars(3)
	if t.OK {
		active = fmt.Sprintf("%3d", t.Active)
	}
	return fmt.Sprintf("[%s %s]", strings.Join(entries, " "), active)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
