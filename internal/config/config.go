package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pitchctl/internal/control"
	"github.com/san-kum/pitchctl/internal/physics"
)

const (
	DefaultPeriodMS     = 40
	DefaultStaleAfterMS = 500
	DefaultBaudRate     = 115200
	DefaultCANInterface = "can0"
	DefaultDt           = 0.005
	DefaultDuration     = 10.0
	DefaultInitPitch    = 0.3
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Params    control.Params     `yaml:"params"`
	Loop      LoopConfig         `yaml:"loop"`
	Transport TransportConfig    `yaml:"transport"`
	Plant     physics.PitchPlant `yaml:"plant"`
	Sim       SimConfig          `yaml:"sim"`
}

type LoopConfig struct {
	PeriodMS     int `yaml:"period_ms"`
	StaleAfterMS int `yaml:"stale_after_ms"`
}

func (l LoopConfig) Period() time.Duration {
	return time.Duration(l.PeriodMS) * time.Millisecond
}

func (l LoopConfig) StaleAfter() time.Duration {
	return time.Duration(l.StaleAfterMS) * time.Millisecond
}

type TransportConfig struct {
	Kind         string `yaml:"kind"` // none, stdio, can or serial
	CANInterface string `yaml:"can_interface"`
	SerialPort   string `yaml:"serial_port"`
	BaudRate     int    `yaml:"baud_rate"`
}

type SimConfig struct {
	Integrator string  `yaml:"integrator"`
	Controller string  `yaml:"controller"`
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
	InitPitch  float64 `yaml:"init_pitch"`
	InitRate   float64 `yaml:"init_rate"`
}

func DefaultConfig() *Config {
	plant := physics.NewPitchPlant()
	return &Config{
		Params: control.DefaultParams(),
		Loop: LoopConfig{
			PeriodMS:     DefaultPeriodMS,
			StaleAfterMS: DefaultStaleAfterMS,
		},
		Transport: TransportConfig{
			Kind:         "none",
			CANInterface: DefaultCANInterface,
			BaudRate:     DefaultBaudRate,
		},
		Plant: *plant,
		Sim: SimConfig{
			Integrator: "rk4",
			Controller: "pd",
			Dt:         DefaultDt,
			Duration:   DefaultDuration,
			InitPitch:  DefaultInitPitch,
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Loop.PeriodMS <= 0 {
		return fmt.Errorf("%w: loop.period_ms must be positive, got %d", ErrInvalid, c.Loop.PeriodMS)
	}
	if c.Params.PWMNeutral <= 0 {
		return fmt.Errorf("%w: params.pwm_neutral must be positive, got %d", ErrInvalid, c.Params.PWMNeutral)
	}
	switch c.Transport.Kind {
	case "none", "stdio", "can", "serial":
	default:
		return fmt.Errorf("%w: unknown transport kind %q", ErrInvalid, c.Transport.Kind)
	}
	if c.Transport.Kind == "serial" && c.Transport.SerialPort == "" {
		return fmt.Errorf("%w: transport.serial_port is required for serial", ErrInvalid)
	}
	if c.Sim.Dt <= 0 || c.Sim.Duration <= 0 {
		return fmt.Errorf("%w: sim.dt and sim.duration must be positive", ErrInvalid)
	}
	if c.Plant.Inertia <= 0 {
		return fmt.Errorf("%w: plant.inertia must be positive", ErrInvalid)
	}
	return nil
}

// PlantModel returns the configured plant with its neutral tied to the
// controller's.
func (c *Config) PlantModel() *physics.PitchPlant {
	p := c.Plant
	p.Neutral = float64(c.Params.PWMNeutral)
	return &p
}

func (c *Config) InitState() []float64 {
	return []float64{c.Sim.InitPitch, c.Sim.InitRate}
}
