package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewpulse/crewpulse/internal/signal"
)

var beatCmd = &cobra.Command{
	Use:   "beat <agent-id>",
	Short: "Record an activity heartbeat for an agent",
	Long: `Record an activity heartbeat into the shared session registry.

Agent processes run this on a cadence well inside the active threshold so
the presence evaluator sees them as alive. The agent must be in the
configured roster.`,
	Args: cobra.ExactArgs(1),
	RunE: runBeat,
}

func init() {
	rootCmd.AddCommand(beatCmd)
}

func runBeat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	agentID := args[0]
	for _, agent := range cfg.Agents {
		if agent.ID == agentID {
			if err := signal.RecordActivity(cfg.Stores.ActivityFile, agent, time.Now()); err != nil {
				return err
			}
			fmt.Printf("Recorded heartbeat for %s\n", agentID)
			return nil
		}
	}
	return fmt.Errorf("agent %q not in the configured roster", agentID)
}
