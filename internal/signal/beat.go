package signal

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/crewpulse/crewpulse/internal/config"
	"github.com/crewpulse/crewpulse/internal/util"
)

// RecordActivity writes a heartbeat for an agent into the shared activity
// registry. This is the producer side of ActivityRegistry: agent processes
// call it (via the beat command) on a cadence well inside the active
// threshold.
//
// The registry file is shared across processes, so updates take a flock
// around the read-modify-write and land via atomic rename.
func RecordActivity(path string, agent config.Agent, now time.Time) error {
	if path == "" {
		return fmt.Errorf("no activity file configured")
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking activity registry: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	records := make(map[string]ActivityRecord)
	if data, err := os.ReadFile(path); err == nil {
		// A corrupt file is replaced rather than failing the beat;
		// readers already treat it as empty.
		_ = json.Unmarshal(data, &records)
	}

	key := ActivityKey(agent)
	rec := records[key]
	if rec.SessionID == "" {
		rec.SessionID = uuid.NewString()
	}
	rec.UpdatedAt = now
	records[key] = rec

	if err := util.AtomicWriteJSON(path, records); err != nil {
		return fmt.Errorf("writing activity registry: %w", err)
	}
	return nil
}
