package transport

import (
	"fmt"
	"math"

	"go.einride.tech/can"

	"github.com/san-kum/pitchctl/internal/control"
)

// Frame identifiers on the vehicle bus.
const (
	FrameAttitudeAngles uint32 = 0x120
	FrameAttitudeRates  uint32 = 0x121
	FrameSetPitch       uint32 = 0x130
	FrameSetTarget      uint32 = 0x131
	FrameCommand        uint32 = 0x140
)

// Signal scaling. Angles and rates are int16; gains are uint16.
const (
	angleFactor = 1e-4 // rad per bit
	rateFactor  = 1e-3 // rad/s per bit
	gainFactor  = 0.1
)

// inboundLength is the minimum payload length per inbound frame.
var inboundLength = map[uint32]uint8{
	FrameAttitudeAngles: 6,
	FrameAttitudeRates:  6,
	FrameSetPitch:       7,
	FrameSetTarget:      2,
}

// CANCodec maps controller messages to classic 8-byte CAN frames.
// An attitude sample spans two frames; a rates frame completes a sample
// using the most recent angles frame.
type CANCodec struct {
	angles    [3]float64
	haveAngle bool
}

func NewCANCodec() *CANCodec {
	return &CANCodec{}
}

func scaleSigned(v, factor float64) int64 {
	raw := math.Round(v / factor)
	return int64(math.Max(math.MinInt16, math.Min(math.MaxInt16, raw)))
}

func scaleUnsigned(v, factor float64) uint64 {
	raw := math.Round(v / factor)
	return uint64(math.Max(0, math.Min(math.MaxUint16, raw)))
}

func triple(id uint32, a, b, c, factor float64) can.Frame {
	f := can.Frame{ID: id, Length: 6}
	f.Data.SetSignedBitsLittleEndian(0, 16, scaleSigned(a, factor))
	f.Data.SetSignedBitsLittleEndian(16, 16, scaleSigned(b, factor))
	f.Data.SetSignedBitsLittleEndian(32, 16, scaleSigned(c, factor))
	return f
}

func readTriple(f can.Frame, factor float64) [3]float64 {
	return [3]float64{
		float64(f.Data.SignedBitsLittleEndian(0, 16)) * factor,
		float64(f.Data.SignedBitsLittleEndian(16, 16)) * factor,
		float64(f.Data.SignedBitsLittleEndian(32, 16)) * factor,
	}
}

// EncodeAttitude returns the angles frame followed by the rates frame.
func (c *CANCodec) EncodeAttitude(a control.AttitudeSample) [2]can.Frame {
	return [2]can.Frame{
		triple(FrameAttitudeAngles, a.Roll, a.Pitch, a.Yaw, angleFactor),
		triple(FrameAttitudeRates, a.RollRate, a.PitchRate, a.YawRate, rateFactor),
	}
}

// EncodeGains clamps negative gains and max to zero.
func (c *CANCodec) EncodeGains(g control.GainConfig) can.Frame {
	f := can.Frame{ID: FrameSetPitch, Length: 7}
	f.Data.SetUnsignedBitsLittleEndian(0, 16, scaleUnsigned(float64(g.CommandMax), 1))
	f.Data.SetUnsignedBitsLittleEndian(16, 16, scaleUnsigned(g.Kp, gainFactor))
	f.Data.SetUnsignedBitsLittleEndian(32, 16, scaleUnsigned(g.Kd, gainFactor))
	f.Data.SetBit(48, g.Enabled)
	return f
}

func (c *CANCodec) EncodeTarget(deg int) can.Frame {
	f := can.Frame{ID: FrameSetTarget, Length: 2}
	f.Data.SetSignedBitsLittleEndian(0, 16, scaleSigned(float64(deg), 1))
	return f
}

func (c *CANCodec) EncodeCommand(pwm int) can.Frame {
	f := can.Frame{ID: FrameCommand, Length: 2}
	f.Data.SetUnsignedBitsLittleEndian(0, 16, scaleUnsigned(float64(pwm), 1))
	return f
}

func (c *CANCodec) DecodeCommand(f can.Frame) (int, error) {
	if f.ID != FrameCommand {
		return 0, fmt.Errorf("%w: 0x%X is not a command frame", ErrUnknownFrame, f.ID)
	}
	if f.Length < 2 {
		return 0, fmt.Errorf("%w: command frame length %d", ErrMalformed, f.Length)
	}
	return int(f.Data.UnsignedBitsLittleEndian(0, 16)), nil
}

// Decode turns an inbound frame into a message. ok is false when the frame
// was consumed without completing a message (an angles frame).
func (c *CANCodec) Decode(f can.Frame) (msg Message, ok bool, err error) {
	if f.IsRemote {
		return nil, false, fmt.Errorf("%w: remote frame 0x%X", ErrMalformed, f.ID)
	}
	n, known := inboundLength[f.ID]
	if !known {
		return nil, false, fmt.Errorf("%w: 0x%X", ErrUnknownFrame, f.ID)
	}
	if f.Length < n {
		return nil, false, fmt.Errorf("%w: frame 0x%X length %d, want %d", ErrMalformed, f.ID, f.Length, n)
	}

	switch f.ID {
	case FrameAttitudeAngles:
		c.angles = readTriple(f, angleFactor)
		c.haveAngle = true
		return nil, false, nil
	case FrameAttitudeRates:
		if !c.haveAngle {
			return nil, false, nil
		}
		r := readTriple(f, rateFactor)
		return AttitudeMsg{control.AttitudeSample{
			Roll: c.angles[0], Pitch: c.angles[1], Yaw: c.angles[2],
			RollRate: r[0], PitchRate: r[1], YawRate: r[2],
		}}, true, nil
	case FrameSetPitch:
		return GainsMsg{control.GainConfig{
			CommandMax: int(f.Data.UnsignedBitsLittleEndian(0, 16)),
			Kp:         float64(f.Data.UnsignedBitsLittleEndian(16, 16)) * gainFactor,
			Kd:         float64(f.Data.UnsignedBitsLittleEndian(32, 16)) * gainFactor,
			Enabled:    f.Data.Bit(48),
		}}, true, nil
	default:
		return TargetMsg{Degrees: int(f.Data.SignedBitsLittleEndian(0, 16))}, true, nil
	}
}
