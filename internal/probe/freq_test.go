package probe

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Dicklesworthstone/hardmon/internal/clock"
)

func approxEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func TestBucketFrequencies(t *testing.T) {
	tests := []struct {
		name  string
		freqs []float64
		size  int
		want  []float64
	}{
		{"two buckets", []float64{1.0, 1.2, 3.0, 3.4}, 2, []float64{1.1, 3.2}},
		{"unsorted input", []float64{3.4, 1.0, 3.0, 1.2}, 2, []float64{1.1, 3.2}},
		{"one per core", []float64{2, 1, 4, 3}, 4, []float64{1, 2, 3, 4}},
		{"more buckets than cores", []float64{2, 1}, 4, []float64{1, 2}},
		{"single bucket", []float64{1, 2, 3}, 1, []float64{2}},
		{"eight cores four tiers", []float64{8, 7, 6, 5, 4, 3, 2, 1}, 4, []float64{1.5, 3.5, 5.5, 7.5}},
		{"empty", nil, 2, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BucketFrequencies(tt.freqs, tt.size); !approxEqual(got, tt.want) {
				t.Errorf("BucketFrequencies(%v, %d) = %v, want %v", tt.freqs, tt.size, got, tt.want)
			}
		})
	}
}

func TestBucketFrequenciesDoesNotMutateInput(t *testing.T) {
	in := []float64{3, 1, 2}
	BucketFrequencies(in, 3)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("input reordered: %v", in)
	}
}

func TestMinMerge(t *testing.T) {
	if got := MinMerge([]float64{1.1, 3.2}, []float64{0.9, 3.5}); !approxEqual(got, []float64{0.9, 3.2}) {
		t.Errorf("MinMerge = %v, want [0.9 3.2]", got)
	}
	if got := MinMerge(nil, []float64{2, 3}); !approxEqual(got, []float64{2, 3}) {
		t.Errorf("MinMerge(nil) = %v, want [2 3]", got)
	}
	if got := MinMerge([]float64{1}, []float64{2, 3}); !approxEqual(got, []float64{2, 3}) {
		t.Errorf("MinMerge length mismatch = %v, want [2 3]", got)
	}
}

func TestFreqProbeWindowMinimum(t *testing.T) {
	c := clock.Fake(epoch)
	var mu sync.Mutex
	samples := [][]float64{
		{1000, 1200, 3000, 3400},
		{900, 900, 3500, 3500},
	}
	read := func() ([]float64, error) {
		mu.Lock()
		defer mu.Unlock()
		s := samples[0]
		if len(samples) > 1 {
			samples = samples[1:]
		}
		return s, nil
	}

	p := NewFreqProbe(read, FreqConfig{Period: time.Second, Count: 2, Size: 2}, WithClock(c))
	p.Start(context.Background())
	defer func() {
		p.Stop()
		waitDone(t, p.Wait)
	}()

	step := 250 * time.Millisecond
	c.WaitForTimers(1)
	c.Advance(step)
	c.WaitForTimers(1)
	if _, ok := p.Latest(); ok {
		t.Fatal("published before the window completed")
	}
	c.Advance(step)
	c.WaitForTimers(1)

	got, ok := p.Latest()
	if !ok {
		t.Fatal("no result after a full window")
	}
	if !approxEqual(got, []float64{0.9, 3.2}) {
		t.Errorf("freq tiers = %v GHz, want [0.9 3.2]", got)
	}
}
