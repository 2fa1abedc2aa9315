package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crewpulse/crewpulse/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the crewpulse version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("crewpulse " + version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
