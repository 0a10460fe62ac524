package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/shop-slot-scheduling/internal/appointment"
	"github.com/hackgods/shop-slot-scheduling/internal/schedule"
)

type RouterConfig struct {
	Service  *appointment.Service
	Postgres Pinger
	Redis    Pinger
	Logger   zerolog.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/appointments", func(r chi.Router) {
		r.Get("/", listAppointmentsHandler(cfg.Service))
		r.Post("/", createAppointmentHandler(cfg.Service))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getAppointmentHandler(cfg.Service))
			r.Put("/", updateAppointmentHandler(cfg.Service))
			r.Delete("/", deleteAppointmentHandler(cfg.Service))

			r.Post("/start", transitionHandler(cfg.Service, schedule.ActionStart))
			r.Post("/complete", transitionHandler(cfg.Service, schedule.ActionComplete))
			r.Post("/cancel", transitionHandler(cfg.Service, schedule.ActionCancel))
		})
	})

	r.Get("/schedule/{date}/board", boardHandler(cfg.Service))
	r.Get("/schedule/{date}/stats", statsHandler(cfg.Service))
	r.Get("/calendar/{year}/{month}", calendarHandler(cfg.Service))

	r.Route("/settings", func(r chi.Router) {
		r.Get("/policy", getPolicyHandler(cfg.Service))
		r.Put("/policy", updatePolicyHandler(cfg.Service))
		r.Get("/hours", getHoursHandler(cfg.Service))
		r.Put("/hours", updateHoursHandler(cfg.Service))
	})

	return r
}
