// Package history keeps the scrolling CPU load window drawn under the
// panel.
package history

import (
	"sync"
	"time"
)

// DefaultGroup is the number of ticks summed into one point.
const DefaultGroup = 2

// Series is a fixed-length window of points, oldest first. Every group raw
// values are summed into one point and the oldest point is dropped. The
// window starts filled with zeros.
type Series struct {
	mu      sync.RWMutex
	points  []float64
	group   int
	sum     float64
	pending int
}

// New sizes a Series to cover window at one raw value per period.
func New(window, period time.Duration, group int) *Series {
	if group <= 0 {
		group = DefaultGroup
	}
	n := 1
	if period > 0 {
		if c := int(window / period / time.Duration(group)); c > 1 {
			n = c
		}
	}
	return &Series{points: make([]float64, n), group: group}
}

// Add records one raw value and reports whether it completed a point.
func (s *Series) Add(v float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sum += v
	s.pending++
	if s.pending < s.group {
		return false
	}
	copy(s.points, s.points[1:])
	s.points[len(s.points)-1] = s.sum
	s.sum, s.pending = 0, 0
	return true
}

// Points returns a copy of the window.
func (s *Series) Points() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, len(s.points))
	copy(out, s.points)
	return out
}

// Len is the window length in points.
func (s *Series) Len() int { return len(s.points) }

// Ceiling is the largest possible point for a load on [0, cores].
func (s *Series) Ceiling(cores int) float64 { return float64(cores * s.group) }
