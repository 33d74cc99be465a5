package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/civimetrics/mives/internal/engine"
	"github.com/civimetrics/mives/internal/events"
	"github.com/civimetrics/mives/internal/store"
)

// Engine bundles the evaluation pipeline the handlers share. All four pieces
// sit on the same value-function memo.
type Engine struct {
	Values     *engine.ValueFunction
	Aggregator *engine.Aggregator
	Batch      *engine.BatchEvaluator
	Validator  *engine.Validator
}

func NewRouter(s store.Store, ev events.Client, eng Engine, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	trees := NewTreesHandler(s, ev, eng.Validator)
	scenarios := NewScenariosHandler(s, ev)
	evals := NewEvaluationsHandler(s, ev, eng, logger)
	admin := NewAdminHandler(s, eng.Values)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/trees", trees.Create)
		r.Get("/trees", trees.List)
		r.Get("/trees/{id}", trees.Get)
		r.Put("/trees/{id}", trees.Update)
		r.Delete("/trees/{id}", trees.Delete)
		r.Get("/trees/{id}/validation", trees.Validation)

		r.Post("/trees/{id}/scenarios", scenarios.Create)
		r.Get("/trees/{id}/scenarios", scenarios.List)
		r.Get("/scenarios/{id}", scenarios.Get)
		r.Delete("/scenarios/{id}", scenarios.Delete)

		r.Post("/trees/{id}/evaluate", evals.Evaluate)
		r.Post("/trees/{id}/evaluate/batch", evals.EvaluateBatch)
		r.Get("/trees/{id}/evaluations", evals.List)
		r.Get("/evaluations/{id}", evals.Get)
		r.Get("/evaluations/{id}/flow", evals.Flow)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Get("/stats", admin.Stats)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
