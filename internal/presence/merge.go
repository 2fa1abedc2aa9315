package presence

import (
	"fmt"
	"sort"
)

// TaskStats carries per-agent counters from the completion stats store.
type TaskStats struct {
	Executing      int    `json:"executing"`
	Pending        int    `json:"pending"`
	CompletedToday int    `json:"completed_today"`
	LastTitle      string `json:"last_title,omitempty"`
}

// Merge applies the signal precedence rules to a base state.
//
// Overrides apply in fixed order, later entries winning ties:
//  1. Base state from the evaluator (lowest precedence).
//  2. Completion-stats executing count forces executing.
//  3. A registry-reported in-flight run forces executing with its own
//     reason text, even when (2) already fired.
//  4. With no execution override, a completed-today count rewrites only
//     the reason text; the state and its severity are untouched.
func Merge(base State, baseReason string, stats *TaskStats, inFlight bool) (State, string) {
	state, reason := base, baseReason

	if stats != nil && stats.Executing > 0 {
		state = StateExecuting
		reason = fmt.Sprintf("executing %d %s", stats.Executing, plural(stats.Executing, "task"))
	}
	if inFlight {
		state = StateExecuting
		reason = "task run in progress"
	}
	if state != StateExecuting && stats != nil && stats.CompletedToday > 0 {
		reason = fmt.Sprintf("%d %s completed today 🎉", stats.CompletedToday, plural(stats.CompletedToday, "task"))
	}

	return state, reason
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// FleetEntry is the minimal shape SortFleet needs: stable id for ties,
// coordinator flag, and the merged state.
type FleetEntry interface {
	AgentID() string
	IsCoordinator() bool
	PresenceState() State
}

// SortFleet orders entries for display: coordinator first, then ascending
// severity, then id for a stable order.
func SortFleet[T FleetEntry](entries []T) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsCoordinator() != b.IsCoordinator() {
			return a.IsCoordinator()
		}
		if sa, sb := a.PresenceState().Severity(), b.PresenceState().Severity(); sa != sb {
			return sa < sb
		}
		return a.AgentID() < b.AgentID()
	})
}
