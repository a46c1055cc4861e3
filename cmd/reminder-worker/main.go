package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clinicdesk/scheduling/internal/appointment"
	"github.com/clinicdesk/scheduling/internal/billing"
	"github.com/clinicdesk/scheduling/internal/config"
	"github.com/clinicdesk/scheduling/internal/db"
	redisclient "github.com/clinicdesk/scheduling/internal/redis"
	"github.com/clinicdesk/scheduling/internal/schedule"
)

// The worker periodically sweeps past-dated appointments that were never
// started or completed, marking them no-show so they stop blocking
// follow-up workflows.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log, err := zap.NewProduction()
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("reminder-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	}()
	log.Info("connected to Redis")

	repo := appointment.NewPgRepository(pgPool)
	billingRepo := billing.NewPgRepository(pgPool)
	schedRepo := schedule.NewPgRepository(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	svc := appointment.NewService(repo, billingRepo, schedRepo, locker, log, cfg.DefaultFee)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, log *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	swept, err := svc.SweepNoShows(runCtx)
	if err != nil {
		log.Error("no-show sweep error", zap.Error(err))
		return
	}
	log.Info("no-show sweep complete",
		zap.Int("swept", swept),
		zap.Duration("took", time.Since(start)))
}
