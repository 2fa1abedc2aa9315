package signal

import (
	"encoding/json"
	"os"
	"time"

	"github.com/crewpulse/crewpulse/internal/config"
)

// TaskRun is one entry in the shared task run registry. A run is in
// flight when it has a start time but no end time.
type TaskRun struct {
	AgentID   string     `json:"agent_id"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	ChildKey  string     `json:"child_key,omitempty"`
}

// InFlight reports whether the run has started but not ended.
func (t TaskRun) InFlight() bool {
	return t.StartedAt != nil && t.EndedAt == nil
}

// TaskRegistry scans the shared task run table for in-flight work.
type TaskRegistry struct {
	path string
}

// NewTaskRegistry creates a registry reader for the given file.
func NewTaskRegistry(path string) *TaskRegistry {
	return &TaskRegistry{path: path}
}

// FetchAll reads the run table once and resolves a sample per agent:
// the flag reports whether any run is currently in flight, the timestamp
// is the most recent start among the agent's runs. A missing or malformed
// file yields samples with no data.
func (r *TaskRegistry) FetchAll(agents []config.Agent) map[string]Sample {
	runs := r.load()

	samples := make(map[string]Sample, len(agents))
	for _, agent := range agents {
		s := Sample{Source: SourceTasks, AgentID: agent.ID}

		var inFlight bool
		var lastStart time.Time
		var seen bool
		for _, run := range runs {
			if run.AgentID != agent.ID || run.StartedAt == nil {
				continue
			}
			seen = true
			if run.InFlight() {
				inFlight = true
			}
			if run.StartedAt.After(lastStart) {
				lastStart = *run.StartedAt
			}
		}
		if seen {
			s.Flag = boolPtr(inFlight)
			s.ObservedAt = timePtr(lastStart)
		}
		samples[agent.ID] = s
	}
	return samples
}

// load reads and parses the run registry. Any failure yields no runs.
func (r *TaskRegistry) load() map[string]TaskRun {
	if r.path == "" {
		return nil
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil
	}
	var runs map[string]TaskRun
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil
	}
	return runs
}
