package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"MarketPulse/internal/notifier"
	"MarketPulse/internal/scheduler"
	"MarketPulse/internal/server"
)

var (
	servePort   int
	runOnStart  bool
	noScheduler bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the refresh scheduler",
	Long: `Starts the HTTP API and the cron scheduler.

Endpoints:
  GET  /health               - Health check
  GET  /api/market-data      - Current snapshot
  GET  /api/historical-data  - Daily history (?from=YYYY-MM-DD&to=YYYY-MM-DD)
  POST /api/update-data      - Run a refresh now
  GET  /api/runs             - Recent refresh runs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides config)")
	serveCmd.Flags().BoolVar(&runOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true", "refresh once at startup")
	serveCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve only, no cron refreshes")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	port := a.cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var notify scheduler.Notifier
	if a.cfg.TelegramEnabled() {
		notify = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, a.log)
		a.cli.Info().Msg("telegram notifications enabled")
	}

	loc, _ := a.cfg.Location()
	sched := scheduler.NewScheduler(ctx, a.pipeline, notify, loc, a.log)
	if !noScheduler {
		if err := sched.RegisterAll(a.cfg.Schedule.DailyCron, a.cfg.Schedule.IntradayCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	handler := server.NewHandler(a.store, a.pipeline, a.recorder, a.log)
	srv := server.New(port, server.NewRouter(handler, a.cfg.Server.StaticDir, a.log), a.log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	if runOnStart {
		a.cli.Info().Msg("run on start enabled, refreshing now")
		go sched.RunNow()
	}

	a.cli.Info().Int("port", port).Msg("MarketPulse is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		a.cli.Info().Msg("shutdown signal received, stopping")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.cli.Warn().Err(err).Msg("http shutdown")
	}
	a.cli.Info().Msg("MarketPulse stopped")
	return nil
}
