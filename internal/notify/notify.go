// Package notify delivers alarm strings to the user.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Dicklesworthstone/hardmon/internal/clock"
)

// Sink receives the active alarms once per tick. An empty list means no
// alarm is active.
type Sink interface {
	Notify(ctx context.Context, alarms []string) error
}

// LogSink writes each alarm as a warning.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Notify(_ context.Context, alarms []string) error {
	for _, a := range alarms {
		s.Logger.Warn("alarm", "alarm", a)
	}
	return nil
}

// Runner executes a command. It is exec.CommandContext(...).Run by default.
type Runner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Desktop shows alarms with notify-send at critical urgency.
type Desktop struct {
	// Title is the notification summary.
	Title   string
	Timeout time.Duration
	Run     Runner
}

// NewDesktop returns a Desktop sink with a five second command timeout.
func NewDesktop(title string) *Desktop {
	return &Desktop{Title: title, Timeout: 5 * time.Second, Run: runCommand}
}

func (d *Desktop) Notify(ctx context.Context, alarms []string) error {
	if len(alarms) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()
	if err := d.Run(ctx, "notify-send", "--urgency=critical", d.Title, strings.Join(alarms, "\n")); err != nil {
		return fmt.Errorf("notify-send: %w", err)
	}
	return nil
}

// Multi fans out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, alarms []string) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, alarms); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Limited forwards to a sink only when the alarm set changes, and at most
// once per interval. A change held back by the limit is delivered on a
// later call once the limit allows it, if the set is still active.
type Limited struct {
	sink   Sink
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	limiter *rate.Limiter
	last    string
}

// LimitedOption configures a Limited sink.
type LimitedOption func(*Limited)

// WithClock sets the clock the limiter reads.
func WithClock(c clock.Clock) LimitedOption { return func(l *Limited) { l.clock = c } }

// WithLogger sets the logger for dropped notifications.
func WithLogger(logger *slog.Logger) LimitedOption { return func(l *Limited) { l.logger = logger } }

// NewLimited wraps sink so that at most one notification per every is
// delivered.
func NewLimited(sink Sink, every time.Duration, opts ...LimitedOption) *Limited {
	l := &Limited{
		sink:    sink,
		clock:   clock.Real(),
		limiter: rate.NewLimiter(rate.Every(every), 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

func (l *Limited) Notify(ctx context.Context, alarms []string) error {
	key := strings.Join(alarms, "\x00")

	l.mu.Lock()
	if len(alarms) == 0 {
		if l.last != "" {
			l.logger.Info("alarms cleared")
		}
		l.last = ""
		l.mu.Unlock()
		return nil
	}
	if key == l.last {
		l.mu.Unlock()
		return nil
	}
	if !l.limiter.AllowN(l.clock.Now(), 1) {
		l.logger.Debug("alarm notification deferred", "alarms", alarms)
		l.mu.Unlock()
		return nil
	}
	l.last = key
	l.mu.Unlock()

	return l.sink.Notify(ctx, alarms)
}
