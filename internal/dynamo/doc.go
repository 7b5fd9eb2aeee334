// Package dynamo provides the shared primitives for closed-loop pitch
// simulation.
//
// The package defines the interfaces and value types the other packages
// agree on:
//
//   - [State]: vector representing plant state ([theta, q] for pitch)
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//   - [Controller]: sampled feedback controller interface
//   - [Metric] and [Observer]: hooks called once per controller tick
//
// # Thread Safety
//
// The value types here carry no synchronization. Controllers that are fed
// from several goroutines (see package control) guard their own state.
package dynamo
