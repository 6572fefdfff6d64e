package history

import (
	"testing"
	"time"
)

func TestNewSizesWindow(t *testing.T) {
	tests := []struct {
		window, period time.Duration
		group          int
		want           int
	}{
		{600 * time.Second, time.Second, 2, 300},
		{600 * time.Second, 2 * time.Second, 2, 150},
		{600 * time.Second, time.Second, 0, 300},
		{time.Second, time.Second, 2, 1},
		{time.Minute, 0, 2, 1},
	}
	for _, tt := range tests {
		s := New(tt.window, tt.period, tt.group)
		if s.Len() != tt.want {
			t.Errorf("New(%v, %v, %d).Len() = %d, want %d", tt.window, tt.period, tt.group, s.Len(), tt.want)
		}
	}
}

func TestAddSumsGroups(t *testing.T) {
	s := New(6*time.Second, time.Second, 2)
	if got := s.Points(); len(got) != 3 || got[0] != 0 || got[2] != 0 {
		t.Fatalf("initial points = %v, want three zeros", got)
	}

	values := []float64{0.5, 1.0, 2.0, 2.5, 4.0}
	completed := 0
	for _, v := range values {
		if s.Add(v) {
			completed++
		}
	}
	if completed != 2 {
		t.Errorf("completed = %d, want 2", completed)
	}
	want := []float64{0, 1.5, 4.5}
	got := s.Points()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("points = %v, want %v", got, want)
		}
	}

	// The pending 4.0 completes with the next value and scrolls.
	s.Add(1.0)
	s.Add(3.0)
	s.Add(3.0)
	want = []float64{4.5, 5.0, 6.0}
	got = s.Points()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("points after scroll = %v, want %v", got, want)
		}
	}
	if s.Ceiling(8) != 16 {
		t.Errorf("Ceiling(8) = %v, want 16", s.Ceiling(8))
	}
}
