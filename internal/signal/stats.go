package signal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crewpulse/crewpulse/internal/presence"
)

// CompletionStats reads per-agent task counters from the task records
// database. The database is owned by the task pipeline; this adapter only
// queries it.
type CompletionStats struct {
	db *sql.DB
}

// OpenCompletionStats opens the stats database read-only. An empty path
// or an open failure yields a disabled adapter that reports no data,
// matching the fail-soft contract of every signal source.
func OpenCompletionStats(path string) *CompletionStats {
	if path == "" {
		return &CompletionStats{}
	}
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=3000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return &CompletionStats{}
	}
	return &CompletionStats{db: db}
}

// Close releases the database handle. Safe on a disabled adapter.
func (c *CompletionStats) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// FetchAll queries task records updated since local midnight, grouped by
// agent. Agents with no records today are absent from the result: no data,
// not zero. Any query failure yields an empty result.
func (c *CompletionStats) FetchAll(ctx context.Context, now time.Time) map[string]presence.TaskStats {
	if c.db == nil {
		return nil
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	rows, err := c.db.QueryContext(ctx,
		`SELECT agent_id, title, status FROM task_runs WHERE updated_at >= ? ORDER BY updated_at DESC`,
		midnight)
	if err != nil {
		return nil
	}
	defer rows.Close()

	stats := make(map[string]presence.TaskStats)
	for rows.Next() {
		var agentID, title, status string
		if err := rows.Scan(&agentID, &title, &status); err != nil {
			continue
		}
		s := stats[agentID]
		// Rows arrive newest-first, so the first title per agent is the
		// most recent one.
		if s.LastTitle == "" {
			s.LastTitle = title
		}
		switch status {
		case "running":
			s.Executing++
		case "pending":
			s.Pending++
		case "completed":
			s.CompletedToday++
		}
		stats[agentID] = s
	}
	if rows.Err() != nil {
		return nil
	}
	return stats
}
