// Package physics provides the plant models used to exercise the pitch
// controller in simulation.
//
// [PitchPlant] is a single-axis rigid-body model of an ROV hull:
//
//	I·q̇ = ThrustGain·(pwm - Neutral) - Righting·sin(θ) - Damping·q + Trim
//
// State is [θ, q] (pitch, pitch rate); the single control input is the raw
// PWM command. A command below neutral produces nose-down torque.
package physics
