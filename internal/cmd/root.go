// Package cmd implements the crewpulse CLI.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crewpulse/crewpulse/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "crewpulse",
	Short:         "Agent presence and status aggregation",
	SilenceUsage:  true,
	SilenceErrors: false,
	Long: `crewpulse answers "is it alive, and what is it doing right now?" for a
fleet of long-lived background agents.

It fuses four independent signal sources (gateway liveness, activity
heartbeats, the task run registry, and completion stats) into one
authoritative presence state per agent, recomputed on a fixed cycle and
served over HTTP.`,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "crewpulse.toml", "Path to the TOML config file")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the config file named by the global flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
