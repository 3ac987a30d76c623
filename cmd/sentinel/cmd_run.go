package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"LayerSentinel/internal/notifier"
	"LayerSentinel/internal/scheduler"
	"LayerSentinel/internal/server"
)

var runNow bool

// runCmd starts the long-running daemon
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler, Telegram bot and HTTP API",
	Long: `Run starts the cron-driven report and macro jobs, the Telegram command
poller (when a bot token and chat id are configured) and the JSON API.

Set RUN_ON_START=true or pass --now to send a report immediately.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runNow, "now", false, "Send a layer report right after startup")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	a.log.Info().Msg("LayerSentinel starting...")

	var tn *notifier.TelegramNotifier
	var n scheduler.Notifier
	if err := a.cfg.ValidateBot(); err != nil {
		a.log.Warn().Err(err).Msg("telegram disabled")
	} else {
		tn = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.client, a.log)
		n = tn
	}

	sched := scheduler.NewScheduler(ctx, a.runner, n, a.flags, a.cache, a.runOptions(), a.log)
	if err := sched.RegisterAll(a.cfg.Schedule.ReportCron, a.cfg.Schedule.MacroCron, a.cfg.Schedule.SweepCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		a.log.Info().Msg("Telegram polling started")
	}

	srv := server.New(server.Config{
		Addr:           a.cfg.HTTP.Addr,
		AllowedOrigins: a.cfg.HTTP.AllowedOrigins,
		Log:            a.log,
		Runner:         a.runner,
		History:        a.rec,
		Cache:          a.cache,
		Flags:          a.flags,
		Metrics:        a.metrics.Handler(),
		Options:        a.runOptions(),
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	if runNow || os.Getenv("RUN_ON_START") == "true" {
		a.log.Info().Msg("sending a layer report now")
		go sched.RunReportNow()
	}

	a.log.Info().Msg("LayerSentinel is running. Press Ctrl+C to stop.")
	<-ctx.Done()

	a.log.Info().Msg("shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("HTTP shutdown")
	}
	a.log.Info().Msg("LayerSentinel stopped")
	return nil
}
