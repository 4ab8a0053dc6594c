package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/careops/clinic-scheduling/internal/schedule"
)

type RouterConfig struct {
	Service *schedule.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Doctor schedule endpoints
	r.Get("/doctors/{doctorID}/slots", listSlotsHandler(cfg.Service))
	r.Get("/doctors/{doctorID}/appointments", listDayAppointmentsHandler(cfg.Service))
	r.Get("/doctors/{doctorID}/availability", listAvailabilityHandler(cfg.Service))
	r.Post("/doctors/{doctorID}/availability", createAvailabilityHandler(cfg.Service))
	r.Put("/availability/{ruleID}", updateAvailabilityHandler(cfg.Service))

	// Appointment endpoints
	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/confirm", transitionHandler(cfg.Service, schedule.StatusConfirmed))
	r.Post("/appointments/{id}/complete", transitionHandler(cfg.Service, schedule.StatusCompleted))
	r.Post("/appointments/{id}/cancel", transitionHandler(cfg.Service, schedule.StatusCancelled))
	r.Post("/appointments/{id}/no-show", transitionHandler(cfg.Service, schedule.StatusNoShow))

	return r
}
