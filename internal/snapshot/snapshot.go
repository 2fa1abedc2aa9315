// Package snapshot builds and publishes the authoritative fleet view.
//
// A Snapshot is immutable once published. The cycle replaces the current
// snapshot wholesale through an atomic pointer, so readers always see a
// fully-formed, internally-consistent view and never block on a tick.
package snapshot

import (
	"time"

	"github.com/crewpulse/crewpulse/internal/config"
	"github.com/crewpulse/crewpulse/internal/presence"
)

// AgentPresence is one agent's resolved state within a snapshot.
type AgentPresence struct {
	Agent        config.Agent        `json:"agent"`
	State        presence.State      `json:"state"`
	Reason       string              `json:"reason"`
	LastActivity *time.Time          `json:"last_activity,omitempty"`
	Tasks        *presence.TaskStats `json:"tasks,omitempty"`
}

// AgentID implements presence.FleetEntry.
func (a AgentPresence) AgentID() string { return a.Agent.ID }

// IsCoordinator implements presence.FleetEntry.
func (a AgentPresence) IsCoordinator() bool { return a.Agent.Coordinator }

// PresenceState implements presence.FleetEntry.
func (a AgentPresence) PresenceState() presence.State { return a.State }

// Snapshot is one published fleet view. Exactly one AgentPresence exists
// per configured agent; even on the first tick with no data every agent
// gets a valid degraded state.
type Snapshot struct {
	ComputedAt time.Time       `json:"computed_at"`
	GatewayUp  bool            `json:"gateway_up"`
	Agents     []AgentPresence `json:"agents"` // display order: coordinator first, then severity
}

// Agent returns the presence entry for an agent id, or nil if unknown.
func (s *Snapshot) Agent(id string) *AgentPresence {
	for i := range s.Agents {
		if s.Agents[i].Agent.ID == id {
			return &s.Agents[i]
		}
	}
	return nil
}

// Totals sums the task counters across the fleet.
func (s *Snapshot) Totals() presence.TaskStats {
	var totals presence.TaskStats
	for _, a := range s.Agents {
		if a.Tasks == nil {
			continue
		}
		totals.Executing += a.Tasks.Executing
		totals.Pending += a.Tasks.Pending
		totals.CompletedToday += a.Tasks.CompletedToday
	}
	return totals
}
