package ui

import "strings"

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws the last width points scaled to [0, ceiling]. Zero
// points draw as blanks.
func Sparkline(points []float64, ceiling float64, width int) string {
	if width <= 0 || len(points) == 0 {
		return ""
	}
	if len(points) > width {
		points = points[len(points)-width:]
	}
	var b strings.Builder
	for _, p := range points {
		if p <= 0 || ceiling <= 0 {
			b.WriteRune(' ')
			continue
		}
		level := int(p / ceiling * float64(len(sparkLevels)))
		if level >= len(sparkLevels) {
			level = len(sparkLevels) - 1
		}
		b.WriteRune(sparkLevels[level])
	}
	return b.String()
}
