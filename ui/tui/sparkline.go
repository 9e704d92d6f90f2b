package tui

import (
	"strings"

	"scrollchart/models"
	"scrollchart/utils"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws the last width points as block characters scaled into [lo, hi].
func Sparkline(points []models.DataPoint, width int, lo, hi float64) string {
	if width <= 0 {
		return ""
	}
	if len(points) > width {
		points = points[len(points)-width:]
	}
	var b strings.Builder
	for i := len(points); i < width; i++ {
		b.WriteByte(' ')
	}
	span := hi - lo
	top := len(sparkBlocks) - 1
	for _, p := range points {
		idx := 0
		if span > 0 {
			idx = int(utils.Clamp((p.Y()-lo)/span, 0, 1) * float64(top))
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}
