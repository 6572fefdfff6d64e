package sensors

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Dicklesworthstone/hardmon/internal/clock"
	"github.com/Dicklesworthstone/hardmon/internal/counter"
	"github.com/Dicklesworthstone/hardmon/internal/model"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

const gib = 1024 * 1024 * 1024

// System reads the local machine.
type System struct {
	cfg   Config
	clock clock.Clock
	cores int

	procMu    sync.Mutex
	procCache map[int32]*process.Process
}

// NewSystem returns a Source for this host.
func NewSystem(cfg Config, c clock.Clock) *System {
	if c == nil {
		c = clock.Real()
	}
	cores, err := cpu.Counts(true)
	if err != nil || cores <= 0 {
		cores = 1
	}
	return &System{
		cfg:       cfg,
		clock:     c,
		cores:     cores,
		procCache: make(map[int32]*process.Process),
	}
}

func (s *System) CPUTimes(ctx context.Context) (counter.Snapshot, error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return counter.Snapshot{}, fmt.Errorf("reading cpu times: %w", err)
	}
	if len(times) == 0 {
		return counter.Snapshot{}, errors.New("reading cpu times: empty result")
	}
	return counter.FromCPUTimes(times[0], s.clock.Now()), nil
}

func (s *System) DiskCounters(ctx context.Context) (counter.Snapshot, error) {
	devices, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return counter.Snapshot{}, fmt.Errorf("reading disk counters: %w", err)
	}
	return counter.FromDiskCounters(devices, s.clock.Now()), nil
}

func (s *System) NetCounters(ctx context.Context) (counter.Snapshot, error) {
	stats, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return counter.Snapshot{}, fmt.Errorf("reading net counters: %w", err)
	}
	if len(stats) == 0 {
		return counter.Snapshot{}, errors.New("reading net counters: empty result")
	}
	return counter.FromNetCounters(stats[0], s.clock.Now()), nil
}

func (s *System) CPUCount() int { return s.cores }

func (s *System) LoadAvg1(ctx context.Context) (float64, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading load average: %w", err)
	}
	return avg.Load1, nil
}

func (s *System) CoreFrequencies() ([]float64, error) {
	return readCoreFrequencies(s.cfg.CPURoot)
}

func (s *System) Temperature(ctx context.Context, chip string) (float64, error) {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil && len(temps) == 0 {
		return 0, fmt.Errorf("reading temperatures: %w", err)
	}
	// gopsutil reports partial results alongside warnings.
	return hottest(temps, chip)
}

func hottest(temps []host.TemperatureStat, chip string) (float64, error) {
	found := false
	var max float64
	for _, t := range temps {
		if !strings.HasPrefix(t.SensorKey, chip) {
			continue
		}
		if !found || t.Temperature > max {
			max = t.Temperature
		}
		found = true
	}
	if !found {
		return 0, fmt.Errorf("no temperature sensor for %q", chip)
	}
	return max, nil
}

func (s *System) Memory(ctx context.Context) (model.Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return model.Memory{}, fmt.Errorf("reading memory: %w", err)
	}
	out := model.Memory{
		UsedGB:    float64(vm.Used) / gib,
		CachedGB:  float64(vm.Cached) / gib,
		BuffersGB: float64(vm.Buffers) / gib,
		TotalGB:   float64(vm.Total) / gib,
		OK:        true,
	}
	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		out.SwapGB = float64(swap.Used) / gib
	}
	return out, nil
}

func (s *System) Battery() (model.Battery, error) {
	return readBattery(s.cfg.BatteryPath)
}

func (s *System) GPU() (model.GPU, error) {
	return readGPU(s.cfg.HwmonRoot, s.cfg.GPUDeviceID)
}

// TopProcesses sums CPU percent by process name since the previous call
// and returns the n busiest names.
func (s *System) TopProcesses(ctx context.Context, n int) (model.Top, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return model.Top{}, fmt.Errorf("listing processes: %w", err)
	}

	s.procMu.Lock()
	defer s.procMu.Unlock()

	alive := make(map[int32]bool, len(procs))
	for _, p := range procs {
		alive[p.Pid] = true
		if _, ok := s.procCache[p.Pid]; !ok {
			s.procCache[p.Pid] = p
		}
	}
	for pid := range s.procCache {
		if !alive[pid] {
			delete(s.procCache, pid)
		}
	}

	byName := make(map[string]float64)
	active := 0
	for _, p := range s.procCache {
		// Percent(0) measures since the previous call on the same object.
		pct, err := p.PercentWithContext(ctx, 0)
		if err != nil || pct <= 0 {
			continue
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		byName[name] += pct
		active++
	}
	return topN(byName, active, n), nil
}

func topN(byName map[string]float64, active, n int) model.Top {
	top := model.Top{Active: active, OK: true}
	for name, pct := range byName {
		top.Processes = append(top.Processes, model.Process{Name: name, CPU: pct})
	}
	sort.Slice(top.Processes, func(i, j int) bool {
		if top.Processes[i].CPU != top.Processes[j].CPU {
			return top.Processes[i].CPU > top.Processes[j].CPU
		}
		return top.Processes[i].Name < top.Processes[j].Name
	})
	if len(top.Processes) > n {
		top.Processes = top.Processes[:n]
	}
	return top
}

var ledMask = regexp.MustCompile(`LED mask:\s*([0-9a-fA-F]+)`)

// KeyboardLayout inspects the X LED mask; bit 12 is the group indicator.
func (s *System) KeyboardLayout(ctx context.Context) (string, error) {
	out, err := runCmd(ctx, 2*time.Second, "xset", "-q")
	if err != nil {
		return "", err
	}
	return parseLayout(out, s.cfg.Layouts)
}

func parseLayout(xsetOutput string, layouts [2]string) (string, error) {
	m := ledMask.FindStringSubmatch(xsetOutput)
	if m == nil {
		return "", errors.New("no LED mask in xset output")
	}
	mask, err := strconv.ParseUint(m[1], 16, 32)
	if err != nil {
		return "", fmt.Errorf("parsing LED mask %q: %w", m[1], err)
	}
	if mask&0x1000 != 0 {
		return layouts[1], nil
	}
	return layouts[0], nil
}

func (s *System) VPNConnected(ctx context.Context) (bool, error) {
	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("listing interfaces: %w", err)
	}
	for _, i := range ifaces {
		for _, marker := range s.cfg.VPNInterfaces {
			if marker != "" && strings.Contains(i.Name, marker) {
				return true, nil
			}
		}
	}
	return false, nil
}

func runCmd(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if ctx.Err() == context.DeadlineExceeded {
		return "", ctx.Err()
	}
	if err != nil {
		return "", fmt.Errorf("running %s: %w", name, err)
	}
	return string(out), nil
}
