// Package viz renders the pitch loop in the terminal.
//
// [Model] is a Bubble Tea program that runs the simulated vehicle against
// the live controller, so gains and setpoints can be tuned by hand:
//
//	Space      - Pause/Resume
//	S          - Single tick while paused
//	E          - Toggle controller enable
//	Tab        - Select Kp or Kd
//	Up/Down    - Scale the selected gain by ±10%
//	Left/Right - Move the setpoint by 5 degrees
//	R          - Reset vehicle and gains
//	Q          - Quit
//
// [PlotSamples] draws a stored run with asciigraph.
package viz
