package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Dicklesworthstone/hardmon/internal/clock"
	"github.com/Dicklesworthstone/hardmon/internal/config"
	"github.com/Dicklesworthstone/hardmon/internal/counter"
	"github.com/Dicklesworthstone/hardmon/internal/model"
	"github.com/Dicklesworthstone/hardmon/internal/monitor"
	"github.com/Dicklesworthstone/hardmon/internal/notify"
)

// stubSource reports steadily growing counters and nothing else.
type stubSource struct {
	clock clock.Clock
	n     uint64
}

func (s *stubSource) CPUTimes(context.Context) (counter.Snapshot, error) {
	s.n++
	return counter.New(map[string]uint64{"user": 500 * s.n, "idle": 100 * s.n}, s.clock.Now()), nil
}

func (s *stubSource) DiskCounters(context.Context) (counter.Snapshot, error) {
	return counter.New(map[string]uint64{"read_bytes": 0, "write_bytes": 0}, s.clock.Now()), nil
}

func (s *stubSource) NetCounters(context.Context) (counter.Snapshot, error) {
	return counter.New(map[string]uint64{"bytes_recv": 0, "bytes_sent": 0}, s.clock.Now()), nil
}

func (s *stubSource) CPUCount() int                             { return 4 }
func (s *stubSource) LoadAvg1(context.Context) (float64, error) { return 0.5, nil }
func (s *stubSource) CoreFrequencies() ([]float64, error)       { return nil, errors.New("none") }
func (s *stubSource) Memory(context.Context) (model.Memory, error) {
	return model.Memory{}, errors.New("none")
}
func (s *stubSource) Battery() (model.Battery, error) { return model.Battery{}, errors.New("none") }
func (s *stubSource) GPU() (model.GPU, error)         { return model.GPU{}, errors.New("none") }
func (s *stubSource) KeyboardLayout(context.Context) (string, error) {
	return "", errors.New("no display")
}
func (s *stubSource) VPNConnected(context.Context) (bool, error) { return false, nil }
func (s *stubSource) TopProcesses(context.Context, int) (model.Top, error) {
	return model.Top{}, errors.New("none")
}
func (s *stubSource) Temperature(context.Context, string) (float64, error) {
	return 0, errors.New("none")
}

func TestRunPrinterPrintsCountLines(t *testing.T) {
	cfg := config.Default()
	cfg.Period = 5 * time.Millisecond
	cfg.Count = 3
	cfg.StatePath = filepath.Join(t.TempDir(), "counters.json")
	cfg.Probes.Ping = false
	cfg.Probes.Bluetooth = false
	cfg.Probes.Wlan = false

	c := clock.Real()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mon := monitor.New(cfg.Monitor(), &stubSource{clock: c}, monitor.WithClock(c), monitor.WithLogger(logger))
	sink := notify.LogSink{Logger: logger}

	var out bytes.Buffer
	if err := runPrinter(context.Background(), mon, sink, cfg, c, logger, &out); err != nil {
		t.Fatalf("runPrinter: %v", err)
	}
	if err := mon.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != cfg.Count {
		t.Fatalf("printed %d lines, want %d:\n%s", len(lines), cfg.Count, out.String())
	}
	for _, line := range lines {
		if strings.HasPrefix(line, "[****") {
			t.Errorf("line without CPU rate: %q", line)
		}
	}

	restarted := monitor.New(cfg.Monitor(), &stubSource{clock: c}, monitor.WithClock(c))
	if !restarted.LoadState(cfg.StatePath) {
		t.Error("state not saved on Stop")
	}
}

func TestRunPrinterStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Period = time.Hour
	cfg.Count = 0
	cfg.StatePath = ""

	c := clock.Real()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mon := monitor.New(cfg.Monitor(), &stubSource{clock: c}, monitor.WithClock(c))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	if err := runPrinter(ctx, mon, notify.LogSink{Logger: logger}, cfg, c, logger, &out); err != nil {
		t.Fatalf("runPrinter: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("printed %q after cancel during bootstrap", out.String())
	}
}
