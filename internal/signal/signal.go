// Package signal implements the independent signal source adapters the
// snapshot cycle fuses into presence states.
//
// Every adapter fails soft: a missing backing file, malformed content, or
// an unreachable backend is converted into "no data" at the adapter
// boundary and never propagates as an error. Adapters are stateless and
// read-only, so they are freely callable concurrently.
package signal

import "time"

// Source names, used in samples and log lines.
const (
	SourceGateway  = "gateway"
	SourceActivity = "activity"
	SourceTasks    = "tasks"
	SourceStats    = "stats"
)

// Sample is one fact from one source about one agent at one instant.
// Nil fields mean the source had no data for that field. Samples are
// produced fresh every cycle tick and never merged across ticks: an
// absent sample means "no data now", not "use the previous value".
type Sample struct {
	Source     string     `json:"source"`
	AgentID    string     `json:"agent_id,omitempty"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
	Flag       *bool      `json:"flag,omitempty"`
	Count      *int       `json:"count,omitempty"`
}

func boolPtr(b bool) *bool           { return &b }
func timePtr(t time.Time) *time.Time { return &t }
