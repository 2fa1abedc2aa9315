package signal

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/crewpulse/crewpulse/internal/config"
)

// Activity registry key classes. Coordinator sessions register under the
// full-identity "agent" class; worker sessions register under "subagent"
// and may appear once per spawned session.
const (
	classAgent    = "agent"
	classSubagent = "subagent"
)

// ActivityRecord is one entry in the shared session registry file.
type ActivityRecord struct {
	UpdatedAt time.Time `json:"updated_at"`
	SessionID string    `json:"session_id,omitempty"`
}

// ActivityKey builds the registry key for an agent. Keys encode
// class:role:id so that lookups can match either the exact identity
// (coordinator) or the whole subagent class (workers).
func ActivityKey(agent config.Agent) string {
	class := classSubagent
	if agent.Coordinator {
		class = classAgent
	}
	return class + ":" + agent.Role + ":" + agent.ID
}

// ActivityRegistry reads per-agent last-activity timestamps from a shared
// keyed JSON file. The file is written by agent processes (see the beat
// command); this adapter only reads it.
type ActivityRegistry struct {
	path string
}

// NewActivityRegistry creates a registry reader for the given file.
func NewActivityRegistry(path string) *ActivityRegistry {
	return &ActivityRegistry{path: path}
}

// FetchAll reads the registry once and resolves a sample per agent.
// A missing, unreadable, or malformed file is treated as an empty registry:
// every agent gets a sample with a nil timestamp.
func (r *ActivityRegistry) FetchAll(agents []config.Agent) map[string]Sample {
	records := r.load()

	samples := make(map[string]Sample, len(agents))
	for _, agent := range agents {
		s := Sample{Source: SourceActivity, AgentID: agent.ID}
		if at, ok := r.lastActivity(records, agent); ok {
			s.ObservedAt = timePtr(at)
		}
		samples[agent.ID] = s
	}
	return samples
}

// load reads and parses the registry file. Any failure yields an empty map.
func (r *ActivityRegistry) load() map[string]ActivityRecord {
	if r.path == "" {
		return nil
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil
	}
	var records map[string]ActivityRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}
	return records
}

// lastActivity resolves the freshest timestamp for an agent.
//
// The coordinator registers one long-lived session under its exact
// identity key. Workers are spawned per task and may leave several
// subagent entries, so any subagent key carrying the agent's id counts
// and the most recent one wins.
func (r *ActivityRegistry) lastActivity(records map[string]ActivityRecord, agent config.Agent) (time.Time, bool) {
	if agent.Coordinator {
		rec, ok := records[ActivityKey(agent)]
		if !ok || rec.UpdatedAt.IsZero() {
			return time.Time{}, false
		}
		return rec.UpdatedAt, true
	}

	var latest time.Time
	for key, rec := range records {
		if !strings.HasPrefix(key, classSubagent+":") {
			continue
		}
		if !strings.HasSuffix(key, ":"+agent.ID) {
			continue
		}
		if rec.UpdatedAt.After(latest) {
			latest = rec.UpdatedAt
		}
	}
	if latest.IsZero() {
		return time.Time{}, false
	}
	return latest, true
}
