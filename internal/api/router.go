package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clinicdesk/scheduling/internal/appointment"
	"github.com/clinicdesk/scheduling/internal/billing"
	"github.com/clinicdesk/scheduling/internal/payment"
	"github.com/clinicdesk/scheduling/internal/schedule"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Payments     *payment.Coordinator
	Billing      billing.Repository
	Schedule     schedule.Repository
	DefaultFee   string
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Log          *zap.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(AuthTokenMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(120, time.Minute))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/doctor-availability", func(r chi.Router) {
		r.Get("/slots", daySlotsHandler(cfg.Appointments))
		r.Post("/", createWeeklySlotHandler(cfg.Schedule))
		r.Post("/exceptions", createExceptionHandler(cfg.Schedule))
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createAppointmentHandler(cfg.Appointments))
		r.Get("/", listAppointmentsHandler(cfg.Appointments))
		r.Post("/conflicts", checkConflictsHandler(cfg.Appointments))
		r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
		r.Patch("/{id}", updateAppointmentHandler(cfg.Appointments))
	})

	r.Get("/doctor-fees/{doctorID}", doctorFeesHandler(cfg.Billing, cfg.DefaultFee))

	r.Get("/appointment-invoices", getInvoiceHandler(cfg.Billing))
	r.Patch("/appointment-invoices/{id}", updateInvoiceHandler(cfg.Billing, cfg.Payments))

	r.Route("/payments", func(r chi.Router) {
		r.Post("/create-order", createOrderHandler(cfg.Payments))
		r.Post("/verify", verifyPaymentHandler(cfg.Payments))
		r.Get("/link", paymentLinkHandler(cfg.Payments))
	})

	return r
}
