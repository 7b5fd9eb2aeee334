// Package export renders stored runs as SVG.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/pitchctl/internal/control"
	"github.com/san-kum/pitchctl/internal/storage"
	"github.com/san-kum/pitchctl/internal/viz"
)

const (
	background  = "#0a0a0a"
	pitchColor  = "#00ccff"
	pwmColor    = "#ffcc00"
	targetColor = "#666688"
)

// CanvasToSVG converts a Braille canvas to one circle per lit dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<g fill="%s">
`, width, height, width, height, background, pitchColor)

	bits := [4][2]rune{
		{0x01, 0x08},
		{0x02, 0x10},
		{0x04, 0x20},
		{0x40, 0x80},
	}
	dotRadius := scale * 0.4

	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			pattern := canvas.Grid[row][col] - 0x2800
			if pattern <= 0 {
				continue
			}
			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&bits[dy][dx] != 0 {
						cx := baseX + float64(dx)*scale + scale/2
						cy := baseY + float64(dy)*scale + scale/2
						fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius)
					}
				}
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

type point struct{ X, Y float64 }

// path scales points into a width x height box, top half or bottom half
// depending on band (0 or 1), and returns the SVG path data.
func path(points []point, lo, hi float64, width, height int, band int) string {
	if len(points) == 0 {
		return ""
	}
	minX, maxX := points[0].X, points[len(points)-1].X
	rangeX := maxX - minX
	if rangeX == 0 {
		rangeX = 1
	}
	rangeY := hi - lo
	if rangeY == 0 {
		rangeY = 1
	}

	bandH := float64(height) / 2
	top := bandH * float64(band)
	pad := bandH * 0.1

	var sb strings.Builder
	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := top + pad + (1-(p.Y-lo)/rangeY)*(bandH-2*pad)
		if i == 0 {
			fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	return sb.String()
}

func bounds(points []point, extra ...float64) (float64, float64) {
	lo, hi := extra[0], extra[0]
	for _, v := range extra {
		lo, hi = min(lo, v), max(hi, v)
	}
	for _, p := range points {
		lo, hi = min(lo, p.Y), max(hi, p.Y)
	}
	return lo, hi
}

// WriteRunSVG draws pitch (degrees, with the target dashed) in the top
// half and the command inside its window in the bottom half.
func WriteRunSVG(w io.Writer, meta *storage.RunMetadata, samples []storage.Sample, width, height int) error {
	if len(samples) < 2 {
		return fmt.Errorf("run %s: need at least two samples", meta.ID)
	}

	target := control.RadiansToDegrees(control.DegreesToRadiansSigned(meta.Params.DesiredPitchDeg))
	window := meta.Params.InitialState().Window()

	pitch := make([]point, len(samples))
	pwm := make([]point, len(samples))
	for i, s := range samples {
		pitch[i] = point{s.Time, control.RadiansToDegrees(s.Pitch)}
		pwm[i] = point{s.Time, float64(s.PWM)}
	}
	targetLine := []point{{samples[0].Time, target}, {samples[len(samples)-1].Time, target}}

	plo, phi := bounds(pitch, target)
	ulo, uhi := bounds(pwm, float64(window.Min()), float64(window.Max))

	_, err := fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<title>%s</title>
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1" stroke-dasharray="4 4" d="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="%s"/>
</svg>
`,
		width, height, width, height, meta.ID, background,
		targetColor, path(targetLine, plo, phi, width, height, 0),
		pitchColor, path(pitch, plo, phi, width, height, 0),
		pwmColor, path(pwm, ulo, uhi, width, height, 1),
	)
	return err
}
