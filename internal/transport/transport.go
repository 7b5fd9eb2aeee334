// Package transport moves controller inputs and commands across process
// boundaries. Inbound messages are attitude samples, gain configurations
// and degree setpoints; outbound is one PWM command per tick.
//
// Implementations: [Channel] (in memory), [CANBus] (SocketCAN),
// [SerialLink] (line protocol over a serial port) and [LogSink].
package transport

import (
	"context"
	"errors"

	"github.com/san-kum/pitchctl/internal/control"
)

// Topic names of the vehicle's message bus, used as log tags.
const (
	TopicAttitude  = "/bluerov2/attitude"
	TopicSetPitch  = "/settings/pitch/set_pitch"
	TopicSetTarget = "/settings/pitch/set_target"
	TopicCommand   = "/bluerov2/rc/pitch"
)

// QueueDepth bounds every inbound and outbound buffer.
const QueueDepth = 10

var (
	ErrClosed       = errors.New("transport: closed")
	ErrUnknownFrame = errors.New("transport: unknown frame")
	ErrMalformed    = errors.New("transport: malformed message")
)

type Message interface {
	Topic() string
}

type AttitudeMsg struct {
	control.AttitudeSample
}

func (AttitudeMsg) Topic() string { return TopicAttitude }

type GainsMsg struct {
	control.GainConfig
}

func (GainsMsg) Topic() string { return TopicSetPitch }

// TargetMsg carries a setpoint in whole degrees, nominally [0, 360).
type TargetMsg struct {
	Degrees int
}

func (TargetMsg) Topic() string { return TopicSetTarget }

type Source interface {
	Receive(ctx context.Context) (Message, error)
	Close() error
}

type Sink interface {
	Publish(ctx context.Context, pwm int) error
	Close() error
}

// received pairs a message with a decode error from a background reader.
type received struct {
	msg Message
	err error
}
