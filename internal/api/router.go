package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pulse-fitness/notifier/internal/api/handler"
	apimw "github.com/pulse-fitness/notifier/internal/api/middleware"
	"github.com/pulse-fitness/notifier/internal/service"
	"github.com/pulse-fitness/notifier/internal/worker"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
// db may be nil, in which case /health does not ping the database.
func NewRouter(
	svc *service.NotificationService,
	runner worker.Runner,
	db handler.Pinger,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(1 << 20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	nh := handler.NewNotificationHandler(svc, logger)
	dh := handler.NewDispatchHandler(runner, logger)
	hh := handler.NewHealthHandler(db)

	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/dispatch", dh.Dispatch)

		r.Post("/notifications", nh.Enqueue)
		r.Get("/notifications/{id}", nh.GetByID)
		r.Post("/notifications/{id}/requeue", nh.Requeue)

		r.Get("/users/{userID}/notifications/pending", nh.Pending)
	})

	return r
}
