// Package control implements the pitch-axis PD stabilizer.
//
// The numeric core is a set of pure functions:
//
//   - [Wrap]: normalizes an angle onto (-π, π]
//   - [DegreesToRadiansSigned]: converts a [0, 360) degree setpoint to signed radians
//   - [PDLaw]: u = Kp*Wrap(pitch-desired) + Kd*pitchRate
//   - [CommandWindow.Saturate]: clamps a PWM command into a window symmetric about neutral
//
// [Pitch] owns the mutable controller state and evaluates one command per
// tick:
//
//	pc := control.NewPitch(control.DefaultParams())
//	pc.UpdateAttitude(sample) // from the attitude source
//	pwm := pc.Tick()          // from the periodic loop
//
// A positive PD output is subtracted from the neutral command, so a nose-up
// error lowers the command. Flipping that sign turns the loop into positive
// feedback.
package control
