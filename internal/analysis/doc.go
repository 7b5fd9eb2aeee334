// Package analysis characterizes a recorded pitch response.
//
//   - [Analyze]: overshoot, rise and settling time, steady-state error
//   - [DominantFrequency]: strongest oscillation in a uniformly sampled
//     series, for spotting limit cycles from too much gain
package analysis
