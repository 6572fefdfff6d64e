package probe

import (
	"context"
	"errors"
	"sort"
	"time"
)

// FreqReader returns the current frequency of every core in MHz.
type FreqReader func() ([]float64, error)

// BucketFrequencies sorts per-core frequencies ascending, splits them into
// size equal groups by position (not by value) and returns each group's
// mean. With fewer cores than buckets every core gets its own bucket.
func BucketFrequencies(freqs []float64, size int) []float64 {
	n := len(freqs)
	if n == 0 {
		return nil
	}
	if size <= 0 {
		size = 1
	}
	if size > n {
		size = n
	}

	sorted := make([]float64, n)
	copy(sorted, freqs)
	sort.Float64s(sorted)

	sums := make([]float64, size)
	counts := make([]int, size)
	for i, f := range sorted {
		b := i * size / n
		sums[b] += f
		counts[b]++
	}
	out := make([]float64, size)
	for i := range out {
		out[i] = sums[i] / float64(counts[i])
	}
	return out
}

// MinMerge returns the element-wise minimum of acc and next. A nil acc or a
// length mismatch (core count changed) yields a copy of next.
func MinMerge(acc, next []float64) []float64 {
	out := make([]float64, len(next))
	copy(out, next)
	if len(acc) != len(next) {
		return out
	}
	for i := range out {
		if acc[i] < out[i] {
			out[i] = acc[i]
		}
	}
	return out
}

// FreqConfig controls the frequency sub-window.
type FreqConfig struct {
	// Period is the main sampling period; one window lasts Period/2.
	Period time.Duration
	// Count is the number of sub-samples per window.
	Count int
	// Size is the number of frequency tiers reported.
	Size int
}

// NewFreqProbe samples core frequencies Count times per window, spaced
// Period/Count/2 apart, and publishes the per-tier minimum in GHz. Reading
// frequencies briefly loads a core; the minimum over several quick samples
// approximates the idle floor of each tier.
func NewFreqProbe(read FreqReader, cfg FreqConfig, opts ...Option) *Probe[[]float64] {
	if cfg.Count <= 0 {
		cfg.Count = 5
	}
	if cfg.Size <= 0 {
		cfg.Size = 4
	}
	step := cfg.Period / time.Duration(cfg.Count) / 2

	p := New[[]float64]("freq", 0, nil, opts...)
	p.fn = func(ctx context.Context) ([]float64, error) {
		var window []float64
		for i := 0; i < cfg.Count; i++ {
			if err := Sleep(ctx, p.clock, step); err != nil {
				return nil, err
			}
			mhz, err := read()
			if err != nil {
				return nil, err
			}
			window = MinMerge(window, BucketFrequencies(mhz, cfg.Size))
		}
		if len(window) == 0 {
			return nil, errors.New("no core frequencies reported")
		}
		ghz := make([]float64, len(window))
		for i, f := range window {
			ghz[i] = f / 1000
		}
		return ghz, nil
	}
	return p
}
