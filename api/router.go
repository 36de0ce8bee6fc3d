package api

import (
	"clipwatch/api/router/handlers"
	"clipwatch/logger"
	"clipwatch/notify"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// NewRouter builds the HTTP handler serving the /api routes and /metrics.
func NewRouter(hub *notify.Hub, runner handlers.DryRunner) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		handlers.RegisterHealthRoutes(r)
		handlers.RegisterRuleRoutes(r)
		handlers.RegisterGroupRoutes(r)
		handlers.RegisterHistoryRoutes(r)
		handlers.RegisterSettingsRoutes(r)
		handlers.RegisterPageRoutes(r, hub)
		handlers.RegisterTestMatchRoutes(r, runner)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		logger.Warn("Unhandled route: %s %s", req.Method, req.URL.Path)
		http.NotFound(w, req)
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return corsHandler.Handler(r)
}
