package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pitchctl/internal/control"
	"github.com/san-kum/pitchctl/internal/dynamo"
	"github.com/san-kum/pitchctl/internal/sim"
)

const (
	canvasWidth     = 40
	canvasHeight    = 16
	historyCapacity = 300
	gainStep        = 1.10
	targetStepDeg   = 5
)

var tunable = []string{"Kp", "Kd"}

type TickMsg time.Time

// Model runs the simulated vehicle one control period per frame.
type Model struct {
	sim    *sim.Simulator
	plant  dynamo.System
	pitch  *control.Pitch
	params control.Params
	cfg    dynamo.Config

	x, x0    dynamo.State
	t        float64
	pwm      int
	running  bool
	selected int
	err      error

	pitchHistory []float64
	pwmHistory   []float64
	canvas       *Canvas
}

// NewModel closes the loop between plant and a fresh controller built from
// params.
func NewModel(plant dynamo.System, integ dynamo.Integrator, params control.Params, x0 []float64, cfg dynamo.Config) Model {
	pitch := control.NewPitch(params)
	return Model{
		sim:          sim.New(plant, integ, pitch),
		plant:        plant,
		pitch:        pitch,
		params:       params,
		cfg:          cfg,
		x:            dynamo.State(x0).Clone(),
		x0:           dynamo.State(x0).Clone(),
		pwm:          params.PWMNeutral,
		running:      true,
		pitchHistory: make([]float64, 0, historyCapacity),
		pwmHistory:   make([]float64, 0, historyCapacity),
		canvas:       NewCanvas(canvasWidth, canvasHeight),
	}
}

func (m Model) tick() tea.Cmd {
	period := time.Duration(m.cfg.Period * float64(time.Second))
	return tea.Tick(period, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "s":
			if !m.running {
				m.step()
			}
		case "e":
			enabled := m.pitch.Snapshot().Gains.Enabled
			m.setParam("Enabled", boolToFloat(!enabled))
		case "tab":
			m.selected = (m.selected + 1) % len(tunable)
		case "up", "k":
			m.scaleGain(gainStep)
		case "down", "j":
			m.scaleGain(1 / gainStep)
		case "left", "h":
			m.moveTarget(-targetStepDeg)
		case "right", "l":
			m.moveTarget(targetStepDeg)
		case "r":
			m.reset()
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) step() {
	if m.err != nil {
		return
	}
	next, u, err := m.sim.Tick(m.x, m.t, m.cfg)
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.x = next
	m.t += float64(sim.SubSteps(m.cfg)) * m.cfg.Dt
	m.pwm = int(u[0])

	m.pitchHistory = appendBounded(m.pitchHistory, control.RadiansToDegrees(m.x[0]))
	m.pwmHistory = appendBounded(m.pwmHistory, float64(m.pwm))
}

func appendBounded(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[1:]
	}
	return h
}

func (m *Model) setParam(name string, v float64) {
	if err := m.pitch.SetParam(name, v); err != nil {
		m.err = err
	}
}

func (m *Model) scaleGain(factor float64) {
	name := tunable[m.selected]
	m.setParam(name, m.pitch.GetParams()[name]*factor)
}

func (m *Model) moveTarget(deltaDeg int) {
	m.setParam("Target", m.pitch.GetParams()["Target"]+float64(deltaDeg))
}

// reset restores the vehicle and the startup parameters.
func (m *Model) reset() {
	init := m.params.InitialState()
	m.pitch.UpdateGains(init.Gains)
	m.pitch.SetDesiredPitch(init.Setpoint.DesiredPitch)
	m.x = m.x0.Clone()
	m.t = 0
	m.pwm = m.params.PWMNeutral
	m.err = nil
	m.pitchHistory = m.pitchHistory[:0]
	m.pwmHistory = m.pwmHistory[:0]
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (m Model) View() string {
	snap := m.pitch.Snapshot()

	m.canvas.Clear()
	m.canvas.DrawDashed(snap.Setpoint.DesiredPitch)
	m.canvas.DrawHull(m.x[0])
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render("PITCH LOOP") + "\n")
	switch {
	case m.err != nil:
		s.WriteString(statusDisabled.Render("HALTED: "+m.err.Error()) + "\n\n")
	case !snap.Gains.Enabled:
		s.WriteString(statusDisabled.Render("DISABLED") + "\n\n")
	case !m.running:
		s.WriteString(statusPaused.Render("PAUSED") + "\n\n")
	default:
		s.WriteString(statusRunning.Render("RUNNING") + "\n\n")
	}

	if len(m.pitchHistory) > 1 {
		chart := asciigraph.Plot(m.pitchHistory, asciigraph.Height(5), asciigraph.Width(32), asciigraph.Caption("pitch (deg)"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.t))
	row("Pitch", fmt.Sprintf("%+.2f°", control.RadiansToDegrees(m.x[0])))
	row("Rate", fmt.Sprintf("%+.3f rad/s", m.x[1]))
	row("Target", fmt.Sprintf("%+.0f°", control.RadiansToDegrees(snap.Setpoint.DesiredPitch)))
	row("PWM", fmt.Sprintf("%d", m.pwm))
	if h, ok := m.plant.(dynamo.Hamiltonian); ok {
		row("Energy", fmt.Sprintf("%.4f J", h.Energy(m.x)))
	}
	s.WriteString(CommandBar(m.pwm, snap.Window(), 30) + "\n")

	s.WriteString("\nGAINS\n")
	gains := map[string]float64{"Kp": snap.Gains.Kp, "Kd": snap.Gains.Kd}
	for i, name := range tunable {
		line := fmt.Sprintf("%-4s %8.2f", name, gains[name])
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}
	s.WriteString(labelStyle.Render("  Max") + valueStyle.Render(fmt.Sprintf("%d", snap.Gains.CommandMax)) + "\n")

	s.WriteString(helpStyle.Render("SP:Pause S:Step E:Enable R:Reset Q:Quit\nTab:Gain ↑↓:Tune ←→:Target"))
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
}
