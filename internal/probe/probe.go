// Package probe runs slow or blocking readings on their own schedule so the
// foreground tick never waits on them.
//
// A Probe owns one goroutine. Each iteration calls its Func and, on
// success, publishes the result by swapping an atomic pointer; readers call
// Latest and always see either the previous or the new value, never a
// partial one. Errors and panics inside an iteration are logged and
// swallowed, and Latest keeps returning the last good value.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dicklesworthstone/hardmon/internal/clock"
)

// Func performs one probe iteration. It should return promptly once ctx is
// cancelled.
type Func[T any] func(ctx context.Context) (T, error)

// Option configures a Probe.
type Option func(*options)

type options struct {
	clock  clock.Clock
	logger *slog.Logger
}

// WithClock sets the clock used for the wait between iterations.
func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// WithLogger sets the logger for iteration failures.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

func buildOptions(opts []Option) options {
	o := options{clock: clock.Real()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Probe periodically runs a Func and publishes its latest result.
type Probe[T any] struct {
	name     string
	interval time.Duration
	fn       Func[T]
	clock    clock.Clock
	logger   *slog.Logger

	latest atomic.Pointer[T]

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	started  atomic.Bool
}

// New returns a Probe that calls fn, waits interval, and repeats. An
// interval of zero runs iterations back to back, for Funcs that pace
// themselves.
func New[T any](name string, interval time.Duration, fn Func[T], opts ...Option) *Probe[T] {
	o := buildOptions(opts)
	return &Probe[T]{
		name:     name,
		interval: interval,
		fn:       fn,
		clock:    o.clock,
		logger:   o.logger.With("probe", name),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Name returns the probe name.
func (p *Probe[T]) Name() string { return p.name }

// Latest returns the most recent successful result. The bool is false
// until the first success.
func (p *Probe[T]) Latest() (T, bool) {
	v := p.latest.Load()
	if v == nil {
		var zero T
		return zero, false
	}
	return *v, true
}

// Start runs the probe loop in a new goroutine.
func (p *Probe[T]) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	go p.loop(ctx)
}

// Run executes the probe loop in the calling goroutine until Stop is
// called or ctx is done. A probe runs at most once; a second Start or Run
// returns an error (Run) or does nothing (Start).
func (p *Probe[T]) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return fmt.Errorf("probe %s: already started", p.name)
	}
	p.loop(ctx)
	return nil
}

func (p *Probe[T]) loop(ctx context.Context) {
	defer close(p.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	p.logger.Debug("probe started", "interval", p.interval)
	for {
		if p.stopping(ctx) {
			p.logger.Debug("probe stopped")
			return
		}
		p.iterate(ctx)

		select {
		case <-ctx.Done():
		case <-p.stop:
		case <-p.clock.After(p.interval):
		}
	}
}

// Stop asks the loop to exit. It does not interrupt a running iteration
// beyond cancelling its context. Safe to call more than once.
func (p *Probe[T]) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Wait blocks until the loop has exited. Returns immediately if the probe
// was never started.
func (p *Probe[T]) Wait() {
	if !p.started.Load() {
		return
	}
	<-p.done
}

func (p *Probe[T]) stopping(ctx context.Context) bool {
	select {
	case <-p.stop:
		return true
	default:
	}
	return ctx.Err() != nil
}

func (p *Probe[T]) iterate(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("probe panicked", "panic", r)
		}
	}()

	v, err := p.fn(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Debug("probe failed", "error", err)
		}
		return
	}
	p.latest.Store(&v)
}

// Sleep waits d on c, returning early with ctx.Err() when ctx is done.
func Sleep(ctx context.Context, c clock.Clock, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.After(d):
		return nil
	}
}
