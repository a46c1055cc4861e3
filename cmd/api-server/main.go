package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clinicdesk/scheduling/internal/api"
	"github.com/clinicdesk/scheduling/internal/appointment"
	"github.com/clinicdesk/scheduling/internal/billing"
	"github.com/clinicdesk/scheduling/internal/config"
	"github.com/clinicdesk/scheduling/internal/db"
	"github.com/clinicdesk/scheduling/internal/payment"
	redisclient "github.com/clinicdesk/scheduling/internal/redis"
	"github.com/clinicdesk/scheduling/internal/schedule"
)

const version = "1.0.0"

func newLogger(env string) *zap.Logger {
	var cfg zap.Config
	if env == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stdout"}

	logger, err := cfg.Build()
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	return logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log := newLogger(cfg.Env)
	defer log.Sync()

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort))

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

	if err := db.Migrate(rootCtx, pgPool, cfg.MigrationsDir); err != nil {
		log.Fatal("migration error", zap.Error(err))
	}
	log.Info("migrations applied")

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

	apptRepo := appointment.NewPgRepository(pgPool)
	billingRepo := billing.NewPgRepository(pgPool)
	schedRepo := schedule.NewPgRepository(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)

	apptSvc := appointment.NewService(apptRepo, billingRepo, schedRepo, locker, log, cfg.DefaultFee)

	gateway := payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpaySecret)
	if !gateway.Configured() {
		log.Warn("payment gateway not configured, online payments will return 503")
	}
	orders := payment.NewRedisOrderStore(rdb, cfg.OrderTTL)
	payments := payment.NewCoordinator(gateway, billingRepo, apptRepo, orders, cfg.PublicOrigin, cfg.Currency, log)

	router := api.NewRouter(api.RouterConfig{
		Appointments: apptSvc,
		Payments:     payments,
		Billing:      billingRepo,
		Schedule:     schedRepo,
		DefaultFee:   cfg.DefaultFee.String(),
		PgPool:       pgPool,
		Redis:        rdb,
		Log:          log,
		Env:          cfg.Env,
		Version:      version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
}
