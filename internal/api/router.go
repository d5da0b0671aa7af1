package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/curelink/consultation-booking/internal/consultation"
	"github.com/curelink/consultation-booking/internal/schedule"
)

type RouterConfig struct {
	Coordinator *consultation.Coordinator
	Lifecycle   *consultation.Lifecycle
	Schedules   schedule.Store

	// Defaults applied when a schedule publish omits them.
	SlotDuration     time.Duration
	OperatingWindows []schedule.OperatingWindow

	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
	Logger  zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/consultations", bookConsultationHandler(cfg.Coordinator))
	r.Get("/consultations", listConsultationsHandler(cfg.Lifecycle))
	r.Get("/consultations/{id}", getConsultationHandler(cfg.Lifecycle))
	r.Post("/consultations/{id}/complete", completeConsultationHandler(cfg.Lifecycle))
	r.Post("/consultations/{id}/cancel", cancelConsultationHandler(cfg.Lifecycle))
	r.Post("/consultations/{id}/notes", addNoteHandler(cfg.Lifecycle))

	r.Get("/doctors/{doctorID}/schedule", listScheduleHandler(cfg.Schedules))
	r.Post("/doctors/{doctorID}/schedule", publishScheduleHandler(cfg.Schedules, cfg.SlotDuration, cfg.OperatingWindows))

	return r
}
