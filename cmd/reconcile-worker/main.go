package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/curelink/consultation-booking/internal/config"
	"github.com/curelink/consultation-booking/internal/db"
	"github.com/curelink/consultation-booking/internal/schedule"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := zerolog.New(os.Stdout).With().Timestamp().Str("component", "reconcile-worker").Logger()
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.ReconcileInterval).Msg("reconcile-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	store := schedule.NewPgStore(pgPool)
	reconciler := schedule.NewReconciler(store, cfg.ReconcileBatchSize, log)

	// Run once at startup
	runOnce(rootCtx, reconciler, log)

	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping reconcile worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, reconciler, log)
		}
	}
}

func runOnce(ctx context.Context, reconciler *schedule.Reconciler, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := reconciler.Run(runCtx); err != nil {
		log.Error().Err(err).Msg("reconcile run error")
		return
	}
	log.Info().Dur("took", time.Since(start)).Msg("reconcile run complete")
}
