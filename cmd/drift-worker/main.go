// Command drift-worker periodically reports bookings that no longer fit the current
// time policy: slots holding more appointments than their capacity and
// appointments off the slot grid. It only logs; resolution is left to staff.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/hackgods/shop-slot-scheduling/internal/appointment"
	"github.com/hackgods/shop-slot-scheduling/internal/config"
	"github.com/hackgods/shop-slot-scheduling/internal/db"
	"github.com/hackgods/shop-slot-scheduling/internal/logging"
	redisclient "github.com/hackgods/shop-slot-scheduling/internal/redis"
	"github.com/hackgods/shop-slot-scheduling/internal/schedule"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("dev", "drift-worker")
		boot.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, "drift-worker")
	logger.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Int("lookahead_days", cfg.DriftLookaheadDays).
		Msg("drift-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	// The worker never books, so an in-process locker is enough.
	repo := appointment.NewPgRepository(pgPool)
	svc := appointment.NewService(repo, redisclient.NewLocalSlotLocker(), cfg, logger)

	// Run once at startup
	runOnce(rootCtx, svc, cfg.DriftLookaheadDays, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping drift worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.DriftLookaheadDays, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, days int, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	reports, err := svc.DetectDrift(runCtx, civil.DateOf(start), days)
	if err != nil {
		logger.Error().Err(err).Msg("drift run error")
		return
	}

	for _, r := range reports {
		for _, slot := range r.Overfull {
			logger.Warn().
				Str("date", r.Date.String()).
				Str("time", schedule.FormatClock(slot.StartMinutes)).
				Int("occupancy", slot.Occupancy()).
				Int("active", slot.ActiveOccupancy()).
				Int("capacity", slot.Capacity).
				Msg("slot over capacity")
		}
		for _, a := range r.NonStandard {
			logger.Warn().
				Str("date", r.Date.String()).
				Str("time", a.Clock()).
				Int64("appointment_id", a.ID).
				Bool("closed_day", r.Closed).
				Msg("appointment off the slot grid")
		}
	}

	logger.Info().
		Int("days_with_drift", len(reports)).
		Dur("took", time.Since(start)).
		Msg("drift run complete")
}
