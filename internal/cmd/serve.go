package cmd

import (
	"context"
	"log/slog"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewpulse/crewpulse/internal/presence"
	"github.com/crewpulse/crewpulse/internal/server"
	"github.com/crewpulse/crewpulse/internal/signal"
	"github.com/crewpulse/crewpulse/internal/snapshot"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the snapshot cycle and HTTP endpoint",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	stats := signal.OpenCompletionStats(cfg.Stores.StatsDB)
	defer func() { _ = stats.Close() }()

	sources := snapshot.Sources{
		Gateway:  signal.NewGatewayProbe(cfg.Gateway.HealthURL),
		Activity: signal.NewActivityRegistry(cfg.Stores.ActivityFile),
		Tasks:    signal.NewTaskRegistry(cfg.Stores.TasksFile),
		Stats:    stats,
	}

	cycle := snapshot.NewCycle(
		cfg.Agents,
		sources,
		presence.NewEvaluator(presence.DefaultThresholds()),
		cfg.Cycle.Interval.Value(),
		snapshot.WithLogger(logger),
	)
	if err := cycle.Start(); err != nil {
		return err
	}
	defer func() { _ = cycle.Stop() }()

	srv := server.New(cfg.Server.Addr, cycle, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
