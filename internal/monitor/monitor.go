// Package monitor assembles one model.Snapshot per tick.
//
// A Monitor keeps the previous counter snapshot of every family (CPU, disk,
// network) and derives rates against it. Before the first rate can be
// computed it needs a previous snapshot: either loaded from the state file
// of an earlier run, or captured by Bootstrap one period before the first
// Tick. Slow readings come from background probes that Tick reads without
// blocking.
package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/hardmon/internal/alarm"
	"github.com/Dicklesworthstone/hardmon/internal/clock"
	"github.com/Dicklesworthstone/hardmon/internal/counter"
	"github.com/Dicklesworthstone/hardmon/internal/model"
	"github.com/Dicklesworthstone/hardmon/internal/probe"
	"github.com/Dicklesworthstone/hardmon/internal/sensors"
	"github.com/Dicklesworthstone/hardmon/internal/state"
)

// State is the bootstrap state of a Monitor.
type State int

const (
	// Uninitialized has no previous snapshot.
	Uninitialized State = iota
	// Bootstrapping has captured a first snapshot and is waiting one period.
	Bootstrapping
	// Steady produces rates on every Tick.
	Steady
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Bootstrapping:
		return "bootstrapping"
	case Steady:
		return "steady"
	default:
		return "unknown"
	}
}

// Config holds everything a Monitor needs besides its Source.
type Config struct {
	Period time.Duration
	// StatePath is saved to on Stop when non-empty.
	StatePath string

	Sensors sensors.Config
	Limits  alarm.Limits

	Freq probe.FreqConfig

	EnablePing  bool
	PingHost    string
	PingTimeout time.Duration

	EnableBluetooth bool
	Bluetooth       probe.BluetoothConfig
	// BluetoothReload cycles the connection before a battery query.
	BluetoothReload bool

	EnableWlan bool

	// TopProcesses is the length of the top process list.
	TopProcesses int
	// Zone is the secondary clock zone.
	Zone *time.Location
}

// DefaultConfig returns the stock configuration for a one second period.
func DefaultConfig() Config {
	return Config{
		Period:          time.Second,
		Sensors:         sensors.DefaultConfig(),
		Limits:          alarm.DefaultLimits(),
		Freq:            probe.FreqConfig{Count: 5, Size: 4},
		EnablePing:      true,
		PingHost:        "8.8.8.8",
		PingTimeout:     5 * time.Second,
		EnableBluetooth: true,
		Bluetooth:       probe.BluetoothConfig{BatteryPeriod: 3 * time.Hour, MaxDevices: 5},
		BluetoothReload: true,
		EnableWlan:      true,
		TopProcesses:    2,
		Zone:            time.FixedZone("MSK", 3*60*60),
	}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock sets the clock for bootstrap waits, probes and timestamps.
func WithClock(c clock.Clock) Option { return func(m *Monitor) { m.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(m *Monitor) { m.logger = l } }

// WithPinger replaces the ICMP pinger.
func WithPinger(p probe.Pinger) Option { return func(m *Monitor) { m.pinger = p } }

// WithBluetooth replaces the bluetoothctl client.
func WithBluetooth(c probe.BluetoothClient) Option { return func(m *Monitor) { m.bluetooth = c } }

// WithWlan replaces the bit rate reader and interface lister.
func WithWlan(read probe.BitrateReader, list probe.InterfaceLister) Option {
	return func(m *Monitor) {
		m.bitrate = read
		m.ifaces = list
	}
}

type runner interface {
	Name() string
	Run(ctx context.Context) error
	Stop()
}

// Monitor is the per-tick orchestrator. Tick, Bootstrap and Stop are meant
// to be driven from one goroutine; probes run on their own.
type Monitor struct {
	cfg    Config
	source sensors.Source
	clock  clock.Clock
	logger *slog.Logger

	pinger    probe.Pinger
	bluetooth probe.BluetoothClient
	bitrate   probe.BitrateReader
	ifaces    probe.InterfaceLister

	mu       sync.Mutex
	state    State
	prevCPU  counter.Snapshot
	prevDisk counter.Snapshot
	prevNet  counter.Snapshot
	// Capture generation of each previous snapshot. Families older or newer
	// than the CPU snapshot are not persisted under its timestamp.
	gen                     uint64
	cpuGen, diskGen, netGen uint64

	freq *probe.Probe[[]float64]
	ping *probe.Probe[time.Duration]
	bt   *probe.Probe[probe.BluetoothStatus]
	wlan *probe.Probe[probe.WlanStatus]

	probes   []runner
	group    *errgroup.Group
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New builds a Monitor and its probes. Probes do not run until Start.
func New(cfg Config, source sensors.Source, opts ...Option) *Monitor {
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	if cfg.Zone == nil {
		cfg.Zone = time.UTC
	}
	m := &Monitor{
		cfg:       cfg,
		source:    source,
		clock:     clock.Real(),
		pinger:    probe.ICMPPing,
		bluetooth: probe.Bluetoothctl{Timeout: 10 * time.Second, ForceReload: cfg.BluetoothReload},
		bitrate:   probe.ReadBitrate,
		ifaces:    probe.SystemInterfaces,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	popts := []probe.Option{probe.WithClock(m.clock), probe.WithLogger(m.logger)}

	freqCfg := cfg.Freq
	freqCfg.Period = cfg.Period
	m.freq = probe.NewFreqProbe(source.CoreFrequencies, freqCfg, popts...)
	m.probes = append(m.probes, m.freq)

	if cfg.EnablePing {
		m.ping = probe.NewPingProbe(m.pinger, cfg.PingHost, cfg.Period, cfg.PingTimeout, popts...)
		m.probes = append(m.probes, m.ping)
	}
	if cfg.EnableBluetooth {
		btCfg := cfg.Bluetooth
		btCfg.Period = cfg.Period
		m.bt = probe.NewBluetoothProbe(m.bluetooth, btCfg, popts...)
		m.probes = append(m.probes, m.bt)
	}
	if cfg.EnableWlan {
		m.wlan = probe.NewWlanProbe(m.bitrate, m.ifaces, cfg.Period, popts...)
		m.probes = append(m.probes, m.wlan)
	}
	return m
}

// State reports the bootstrap state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start launches every probe. Probes stop when ctx is done or on Stop.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range m.probes {
		g.Go(func() error { return p.Run(gctx) })
	}
	m.group = g
	m.logger.Info("probes started", "count", len(m.probes), "period", m.cfg.Period)
}

// LoadState seeds the previous snapshots from path. It reports whether the
// monitor can skip bootstrapping.
func (m *Monitor) LoadState(path string) bool {
	st, ok := state.NewStore(path, m.logger).Load()
	if !ok {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prevCPU, m.prevDisk, m.prevNet = st.CPU, st.Disk, st.Net
	m.gen++
	m.cpuGen, m.diskGen, m.netGen = m.gen, m.gen, m.gen
	m.state = Steady
	m.logger.Debug("state loaded", "path", path, "time", st.Time)
	return true
}

// SaveState writes the previous snapshots to path. A disk or network
// snapshot not captured together with the CPU snapshot is written empty, so
// the next process bootstraps that family's rate instead of dividing by the
// wrong interval.
func (m *Monitor) SaveState(path string) error {
	m.mu.Lock()
	st := state.State{CPU: m.prevCPU, Time: m.prevCPU.Time()}
	if m.diskGen == m.cpuGen {
		st.Disk = m.prevDisk
	}
	if m.netGen == m.cpuGen {
		st.Net = m.prevNet
	}
	m.mu.Unlock()
	if st.CPU.IsZero() {
		return errors.New("no counters captured yet")
	}
	return state.NewStore(path, m.logger).Save(st)
}

// Bootstrap captures a first snapshot of every family and waits one period
// so the next Tick has a meaningful interval.
func (m *Monitor) Bootstrap(ctx context.Context) error {
	cpu, disk, net := m.capture(ctx)
	m.mu.Lock()
	m.keep(cpu, disk, net)
	m.state = Bootstrapping
	m.mu.Unlock()

	m.logger.Debug("bootstrapping", "period", m.cfg.Period)
	if err := probe.Sleep(ctx, m.clock, m.cfg.Period); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = Steady
	m.mu.Unlock()
	return nil
}

type captured struct {
	snap counter.Snapshot
	ok   bool
}

func (m *Monitor) capture(ctx context.Context) (cpu, disk, net captured) {
	var err error
	if cpu.snap, err = m.source.CPUTimes(ctx); err != nil {
		m.logger.Debug("cpu counters unavailable", "error", err)
	} else {
		cpu.ok = true
	}
	if disk.snap, err = m.source.DiskCounters(ctx); err != nil {
		m.logger.Debug("disk counters unavailable", "error", err)
	} else {
		disk.ok = true
	}
	if net.snap, err = m.source.NetCounters(ctx); err != nil {
		m.logger.Debug("net counters unavailable", "error", err)
	} else {
		net.ok = true
	}
	return cpu, disk, net
}

// keep replaces the previous snapshot of every family captured
// successfully. Callers hold m.mu.
func (m *Monitor) keep(cpu, disk, net captured) {
	m.gen++
	if cpu.ok {
		m.prevCPU, m.cpuGen = cpu.snap, m.gen
	}
	if disk.ok {
		m.prevDisk, m.diskGen = disk.snap, m.gen
	}
	if net.ok {
		m.prevNet, m.netGen = net.snap, m.gen
	}
}

// Tick returns one full reading. It bootstraps first when no previous
// snapshot exists; the only error is ctx ending during that wait.
func (m *Monitor) Tick(ctx context.Context) (model.Snapshot, error) {
	if m.State() != Steady {
		if err := m.Bootstrap(ctx); err != nil {
			return model.Snapshot{}, err
		}
	}

	cpu, disk, net := m.capture(ctx)
	now := m.clock.Now()

	m.mu.Lock()
	prevCPU, prevDisk, prevNet := m.prevCPU, m.prevDisk, m.prevNet
	m.keep(cpu, disk, net)
	m.mu.Unlock()

	snap := model.Snapshot{
		Timestamp: now,
		Period:    m.cfg.Period,
		Clock: model.Clock{
			Local:    now.Local(),
			UTCHour:  now.UTC().Hour(),
			ZoneHour: now.In(m.cfg.Zone).Hour(),
		},
	}

	snap.CPU = m.cpuSection(ctx, prevCPU, cpu)
	snap.Network = m.networkSection(prevNet, net)
	snap.Disk = m.diskSection(ctx, prevDisk, disk)
	snap.Memory = m.memory(ctx)
	snap.Battery = m.battery()
	snap.GPU = m.gpu()
	snap.Env = m.env(ctx)
	snap.Top = m.top(ctx)

	snap.Alarms = alarm.Evaluate(m.cfg.Limits, alarm.Readings{
		CPU:         alarm.Reading{Value: snap.CPU.TempC, OK: snap.CPU.HasTemp},
		Disk:        alarm.Reading{Value: snap.Disk.TempC, OK: snap.Disk.HasTemp},
		GPU:         alarm.Reading{Value: snap.GPU.TempC, OK: snap.GPU.Present},
		GPUCritical: alarm.Reading{Value: snap.GPU.CritC, OK: snap.GPU.HasCrit},
	})
	return snap, nil
}

func ratesOK(prev counter.Snapshot, curr captured) bool {
	return curr.ok && prev.Len() > 0 && counter.Elapsed(prev, curr.snap) > 0
}

func (m *Monitor) cpuSection(ctx context.Context, prev counter.Snapshot, curr captured) model.CPU {
	out := model.CPU{Cores: m.source.CPUCount()}
	if ratesOK(prev, curr) {
		// CPU counters are milliseconds, so ms/s over 1000 is busy cores.
		out.Load = counter.BusyRate(prev, curr.snap) / 1000
		out.RatesOK = true
	}
	if avg, err := m.source.LoadAvg1(ctx); err == nil {
		out.LoadAvg1 = avg
	}
	if freqs, ok := m.freq.Latest(); ok {
		out.FreqGHz = append([]float64(nil), freqs...)
	}
	if t, err := m.source.Temperature(ctx, m.cfg.Sensors.CPUChip); err == nil {
		out.TempC, out.HasTemp = t, true
	} else {
		m.logger.Debug("cpu temperature unavailable", "error", err)
	}
	return out
}

func (m *Monitor) networkSection(prev counter.Snapshot, curr captured) model.Network {
	var out model.Network
	if ratesOK(prev, curr) {
		out.RecvMBs = counter.MiBRate(counter.Rate(prev, curr.snap, "bytes_recv"))
		out.SendMBs = counter.MiBRate(counter.Rate(prev, curr.snap, "bytes_sent"))
		out.RatesOK = true
	}
	if m.ping != nil {
		out.Ping, out.HasPing = m.ping.Latest()
	}
	if m.wlan != nil {
		if st, ok := m.wlan.Latest(); ok && st.Iface != "" {
			out.WlanIface = st.Iface
			out.WlanMbit = st.BitrateMbs
			out.HasBitrate = true
		}
	}
	return out
}

func (m *Monitor) diskSection(ctx context.Context, prev counter.Snapshot, curr captured) model.Disk {
	var out model.Disk
	if ratesOK(prev, curr) {
		out.ReadMBs = counter.MiBRate(counter.Rate(prev, curr.snap, "read_bytes"))
		out.WriteMBs = counter.MiBRate(counter.Rate(prev, curr.snap, "write_bytes"))
		out.RatesOK = true
	}
	if t, err := m.source.Temperature(ctx, m.cfg.Sensors.DiskChip); err == nil {
		out.TempC, out.HasTemp = t, true
	} else {
		m.logger.Debug("disk temperature unavailable", "error", err)
	}
	return out
}

func (m *Monitor) memory(ctx context.Context) model.Memory {
	mem, err := m.source.Memory(ctx)
	if err != nil {
		m.logger.Debug("memory unavailable", "error", err)
		return model.Memory{}
	}
	return mem
}

func (m *Monitor) battery() model.Battery {
	bat, err := m.source.Battery()
	if err != nil {
		m.logger.Debug("battery unavailable", "error", err)
		return model.Battery{}
	}
	return bat
}

func (m *Monitor) gpu() model.GPU {
	gpu, err := m.source.GPU()
	if err != nil {
		m.logger.Debug("gpu unavailable", "error", err)
		return model.GPU{}
	}
	return gpu
}

func (m *Monitor) env(ctx context.Context) model.Env {
	var out model.Env
	if layout, err := m.source.KeyboardLayout(ctx); err == nil {
		out.KeyboardLayout = layout
	} else {
		m.logger.Debug("keyboard layout unavailable", "error", err)
	}
	if vpn, err := m.source.VPNConnected(ctx); err == nil {
		out.VPN = vpn
	}
	if m.bt != nil {
		if st, ok := m.bt.Latest(); ok {
			out.Bluetooth = model.Bluetooth{
				Connected: st.Connected,
				MAC:       st.MAC,
				Level:     st.Level,
				HasLevel:  st.HasLevel,
			}
		}
	}
	return out
}

func (m *Monitor) top(ctx context.Context) model.Top {
	if m.cfg.TopProcesses <= 0 {
		return model.Top{}
	}
	top, err := m.source.TopProcesses(ctx, m.cfg.TopProcesses)
	if err != nil {
		m.logger.Debug("process list unavailable", "error", err)
		return model.Top{}
	}
	return top
}

// Stop stops every probe, waits for them until ctx is done, and saves the
// state file when one is configured. Safe to call more than once; only
// the first call saves.
func (m *Monitor) Stop(ctx context.Context) error {
	var err error
	m.stopOnce.Do(func() {
		for _, p := range m.probes {
			p.Stop()
		}
		if m.cancel != nil {
			m.cancel()
		}

		done := make(chan struct{})
		go func() {
			if m.group != nil {
				if gerr := m.group.Wait(); gerr != nil {
					m.logger.Warn("probe exited with error", "error", gerr)
				}
			}
			close(done)
		}()
		select {
		case <-done:
			m.logger.Debug("probes stopped")
		case <-ctx.Done():
			m.logger.Warn("probes still running at shutdown", "error", ctx.Err())
		}

		if m.cfg.StatePath != "" {
			if serr := m.SaveState(m.cfg.StatePath); serr != nil {
				err = serr
			}
		}
	})
	return err
}

// Run ticks every period and sends each snapshot on the returned channel
// until ctx is done. The channel is closed when the loop exits.
func (m *Monitor) Run(ctx context.Context) <-chan model.Snapshot {
	ch := make(chan model.Snapshot)
	go func() {
		defer close(ch)
		if m.State() != Steady {
			if err := m.Bootstrap(ctx); err != nil {
				return
			}
		}
		ticker := m.clock.NewTicker(m.cfg.Period)
		defer ticker.Stop()
		for {
			snap, err := m.Tick(ctx)
			if err != nil {
				return
			}
			select {
			case ch <- snap:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
