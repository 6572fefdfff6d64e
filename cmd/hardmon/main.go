// hardmon prints a one-line hardware readout: CPU load, frequency tiers
// and temperature, memory, GPU, network and disk throughput, battery, the
// clock and desktop flags, and the busiest processes.
//
// Printer mode (default) prints --count lines one --period apart. Rates
// need a previous counter snapshot; it is read from --savefile when a
// previous run left one, otherwise the first line waits one period. The
// snapshot is saved again on exit, so short repeated invocations from a
// status bar get rates immediately.
//
// Panel mode (--panel) keeps running in the terminal with a scrolling load
// graph and shows temperature alarms in place of the line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Dicklesworthstone/hardmon/internal/clock"
	"github.com/Dicklesworthstone/hardmon/internal/config"
	"github.com/Dicklesworthstone/hardmon/internal/monitor"
	"github.com/Dicklesworthstone/hardmon/internal/notify"
	"github.com/Dicklesworthstone/hardmon/internal/probe"
	"github.com/Dicklesworthstone/hardmon/internal/sensors"
	"github.com/Dicklesworthstone/hardmon/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := clock.Real()
	source := sensors.NewSystem(cfg.Sensors, c)
	mon := monitor.New(cfg.Monitor(), source, monitor.WithClock(c), monitor.WithLogger(logger))

	var sink notify.Sink = notify.LogSink{Logger: logger}
	if cfg.Notify {
		sink = notify.Multi{sink, notify.NewDesktop("hardmon")}
	}
	sink = notify.NewLimited(sink, cfg.NotifyInterval, notify.WithClock(c), notify.WithLogger(logger))

	if cfg.StatePath != "" {
		mon.LoadState(cfg.StatePath)
	}
	mon.Start(ctx)
	defer func() {
		shutdown, cancel := context.WithTimeout(context.Background(), 2*cfg.Period+time.Second)
		defer cancel()
		if serr := mon.Stop(shutdown); serr != nil {
			logger.Warn("saving counters failed", "path", cfg.StatePath, "error", serr)
		}
	}()

	if cfg.Panel {
		return runPanel(ctx, mon, sink, cfg, logger)
	}
	return runPrinter(ctx, mon, sink, cfg, c, logger, os.Stdout)
}

func runPrinter(ctx context.Context, mon *monitor.Monitor, sink notify.Sink, cfg config.Config, c clock.Clock, logger *slog.Logger, out io.Writer) error {
	for i := 0; cfg.Count == 0 || i < cfg.Count; i++ {
		if i > 0 {
			if err := probe.Sleep(ctx, c, cfg.Period); err != nil {
				return nil
			}
		}
		snap, err := mon.Tick(ctx)
		if err != nil {
			// Interrupted while bootstrapping.
			return nil
		}
		fmt.Fprintln(out, ui.Line(snap, cfg.TopProcesses))
		if err := sink.Notify(ctx, snap.AlarmStrings()); err != nil {
			logger.Debug("notify failed", "error", err)
		}
	}
	return nil
}

func runPanel(ctx context.Context, mon *monitor.Monitor, sink notify.Sink, cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return ui.RunTUI(mon.Run(ctx), cancel, ui.Options{
		Period:      cfg.Period,
		GraphWindow: cfg.GraphWindow,
		ShowGraph:   cfg.GraphWindow > 0,
		TopSlots:    cfg.TopProcesses,
		Sink:        sink,
		Logger:      logger,
	})
}

// newLogger writes text records to --logfile, or to stderr in printer
// mode. The panel owns the terminal, so without a log file it logs
// nowhere.
func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		return slog.New(slog.NewTextHandler(f, opts)), func() { f.Close() }, nil
	case cfg.Panel:
		return slog.New(slog.NewTextHandler(io.Discard, opts)), func() {}, nil
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() {}, nil
	}
}
