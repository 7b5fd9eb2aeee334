package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pitchctl/internal/control"
	"github.com/san-kum/pitchctl/internal/storage"
)

// PlotSamples renders pitch, pitch rate and command charts of a stored run.
func PlotSamples(meta *storage.RunMetadata, samples []storage.Sample, width int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("run %s", meta.ID)) + "\n")
	b.WriteString(labelStyle.Render("controller") + valueStyle.Render(meta.Controller) + "\n")
	b.WriteString(labelStyle.Render("samples") + valueStyle.Render(fmt.Sprintf("%d", len(samples))) + "\n\n")
	if len(samples) == 0 {
		return b.String()
	}

	pitch := make([]float64, len(samples))
	rate := make([]float64, len(samples))
	pwm := make([]float64, 0, len(samples))
	for i, s := range samples {
		pitch[i] = control.RadiansToDegrees(s.Pitch)
		rate[i] = s.PitchRate
		// Rows written without a command parse as zero.
		if s.PWM != 0 {
			pwm = append(pwm, float64(s.PWM))
		}
	}

	series := []struct {
		caption string
		data    []float64
	}{
		{"pitch (deg)", pitch},
		{"pitch rate (rad/s)", rate},
		{"command (pwm)", pwm},
	}
	for _, sr := range series {
		if len(sr.data) == 0 {
			continue
		}
		b.WriteString(asciigraph.Plot(sr.data,
			asciigraph.Height(10),
			asciigraph.Width(width),
			asciigraph.Caption(sr.caption),
		))
		b.WriteString("\n\n")
	}
	return b.String()
}
