// Package presence classifies agent liveness from activity signals.
//
// A presence state is computed from several independent sources, resolved
// by fixed precedence:
//  1. Fleet gate (execution backend down forces the whole fleet offline)
//  2. Explicit execution signals (running tasks beat timestamp freshness)
//  3. Activity-age thresholds (inferred from the last activity timestamp)
package presence

// State is the categorical liveness classification of a monitored agent.
type State string

const (
	StateExecuting State = "executing" // A task is running right now
	StateActive    State = "active"    // Recent activity, ready for work
	StateIdle      State = "idle"      // No recent activity
	StateOffline   State = "offline"   // Stale, stopped, or backend down
)

// Severity returns the fleet sort ordinal. Lower sorts first.
func (s State) Severity() int {
	switch s {
	case StateExecuting:
		return 0
	case StateActive:
		return 1
	case StateIdle:
		return 2
	default:
		return 3
	}
}

// ColorClass maps a state to its display color class. Rendering is a pure
// function of the state so the UI never carries its own status logic.
func (s State) ColorClass() string {
	switch s {
	case StateExecuting:
		return "blue"
	case StateActive:
		return "green"
	case StateIdle:
		return "amber"
	default:
		return "gray"
	}
}

// Pulse reports whether the UI should animate this state's indicator.
func (s State) Pulse() bool {
	return s == StateExecuting || s == StateActive
}

// IsHealthy returns true if the state indicates normal operation.
func (s State) IsHealthy() bool {
	return s == StateExecuting || s == StateActive
}
