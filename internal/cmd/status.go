package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/crewpulse/crewpulse/internal/presence"
	"github.com/crewpulse/crewpulse/internal/server"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current fleet status",
	Long: `Fetch the latest fleet snapshot from a running crewpulse server and
render it as a table, coordinator first, then by severity.`,
	RunE: runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output raw JSON")
}

// Color palette for presence states.
var (
	styleExecuting = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))  // blue
	styleActive    = lipgloss.NewStyle().Foreground(lipgloss.Color("76"))  // green
	styleIdle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	styleOffline   = lipgloss.NewStyle().Foreground(lipgloss.Color("242")) // gray
	styleName      = lipgloss.NewStyle().Bold(true)
	styleMuted     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func stateStyle(s presence.State) lipgloss.Style {
	switch s {
	case presence.StateExecuting:
		return styleExecuting
	case presence.StateActive:
		return styleActive
	case presence.StateIdle:
		return styleIdle
	default:
		return styleOffline
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + cfg.Server.Addr + "/api/fleet")
	if err != nil {
		return fmt.Errorf("fetching fleet status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fleet endpoint returned %s", resp.Status)
	}

	var fleet server.FleetResponse
	if err := json.NewDecoder(resp.Body).Decode(&fleet); err != nil {
		return fmt.Errorf("parsing fleet response: %w", err)
	}

	if statusJSON {
		out, err := json.MarshalIndent(fleet, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	renderFleet(fleet)
	return nil
}

func renderFleet(fleet server.FleetResponse) {
	gate := styleActive.Render("gateway up")
	if !fleet.GatewayUp {
		gate = styleOffline.Render("gateway DOWN")
	}
	fmt.Printf("%s · updated %s\n\n", gate, fleet.UpdatedAt.Format(time.Kitchen))

	for _, a := range fleet.Agents {
		marker := "  "
		if a.Coordinator {
			marker = "★ "
		}
		name := styleName.Render(a.Name)
		state := stateStyle(a.State).Render(string(a.State))
		line := fmt.Sprintf("%s%-20s %-10s %s", marker, name, state, a.Reason)
		if a.Tasks != nil && a.Tasks.LastTitle != "" {
			line += styleMuted.Render("  (" + a.Tasks.LastTitle + ")")
		}
		fmt.Println(line)
	}

	t := fleet.Totals
	fmt.Printf("\n%s\n", styleMuted.Render(fmt.Sprintf(
		"tasks: %d executing, %d pending, %d completed today",
		t.Executing, t.Pending, t.CompletedToday)))
}
