package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/pitchctl/internal/control"
)

var (
	canvasStyle      = lipgloss.NewStyle().Padding(1, 2)
	statsStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(46)
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeParamStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)

	statusRunning  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	statusPaused   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
	statusDisabled = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))

	barLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff"))
	barHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	barEdge = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

// CommandBar draws pwm inside its window as a bar growing out from
// neutral. Commands at a limit are drawn in the warning colour.
func CommandBar(pwm int, w control.CommandWindow, width int) string {
	half := width / 2
	span := w.Max - w.Neutral
	if span <= 0 {
		return strings.Repeat("─", half) + "│" + strings.Repeat("─", half)
	}

	n := (pwm - w.Neutral) * half / span
	if n > half {
		n = half
	}
	if n < -half {
		n = -half
	}

	style := barHigh
	if n < 0 {
		style = barLow
	}
	if w.AtLimit(pwm) {
		style = barEdge
	}

	var left, right string
	if n < 0 {
		left = strings.Repeat("─", half+n) + style.Render(strings.Repeat("█", -n))
		right = strings.Repeat("─", half)
	} else {
		left = strings.Repeat("─", half)
		right = style.Render(strings.Repeat("█", n)) + strings.Repeat("─", half-n)
	}
	return left + "│" + right
}
