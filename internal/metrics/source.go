package metrics

import "github.com/san-kum/pitchctl/internal/control"

// Source yields the controller state a metric measures against. Metrics
// call it on every sample so retuning during a run moves the target and
// window with it.
type Source func() control.State

// Fixed is a Source that never changes.
func Fixed(s control.State) Source {
	return func() control.State { return s }
}
