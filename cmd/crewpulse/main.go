// crewpulse is the agent presence and status aggregation service for the
// portal: it fuses activity, task, and gateway signals into one fleet
// view and serves it over HTTP.
package main

import (
	"os"

	"github.com/crewpulse/crewpulse/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
