package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewpulse/crewpulse/internal/live"
	"github.com/crewpulse/crewpulse/internal/server"
)

// fleetSubject is the feed subject carrying fleet snapshot updates.
const fleetSubject = "fleet"

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow fleet status updates live",
	Long: `Subscribe to the event feed and print fleet updates as they arrive.

The push feed is the primary channel. If it does not come up in time, or
drops mid-session, watch falls back to polling the fleet endpoint and
keeps going; the header shows which mode is carrying the updates.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fleetURL := "http://" + cfg.Server.Addr + "/api/fleet"
	client := &http.Client{Timeout: 5 * time.Second}

	// The fallback fetcher re-reads the whole fleet; its single event
	// replaces the local view wholesale on every poll.
	fetch := func(ctx context.Context, subjectID string) ([]live.Event, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fleetURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fleet endpoint returned %s", resp.Status)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return []live.Event{{SubjectID: subjectID, Payload: body}}, nil
	}

	manager := live.NewManager(live.NewWSFeed(cfg.Live.FeedURL), fetch)
	defer manager.Close()

	_, err = manager.Subscribe(fleetSubject, live.WithUpdateFunc(func(view []live.Event) {
		if len(view) == 0 {
			return
		}
		printFleetUpdate(view[len(view)-1], manager.Channel(fleetSubject))
	}))
	if err != nil {
		return err
	}

	fmt.Println(styleMuted.Render("watching fleet updates, ctrl-c to stop"))

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return nil
}

// printFleetUpdate renders the newest event. Poll results carry a full
// fleet response; push inserts carry a single agent row.
func printFleetUpdate(ev live.Event, ch *live.Channel) {
	mode := "live"
	if ch != nil && ch.Polling() {
		mode = "polling"
	}

	var fleet server.FleetResponse
	if err := json.Unmarshal(ev.Payload, &fleet); err == nil && len(fleet.Agents) > 0 {
		fmt.Printf("\n%s\n", styleMuted.Render("["+mode+"] fleet refresh"))
		renderFleet(fleet)
		return
	}

	var agent server.AgentView
	if err := json.Unmarshal(ev.Payload, &agent); err == nil && agent.ID != "" {
		state := stateStyle(agent.State).Render(string(agent.State))
		fmt.Printf("%s %s %s %s\n", styleMuted.Render("["+mode+"]"),
			styleName.Render(agent.Name), state, agent.Reason)
		return
	}

	fmt.Printf("%s %s\n", styleMuted.Render("["+mode+"]"), string(ev.Payload))
}
