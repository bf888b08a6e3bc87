package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ukydev/vehicle-logbook/internal/middleware"
	"github.com/ukydev/vehicle-logbook/internal/models"
)

// RouterConfig tunes the cross-cutting middleware.
type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter wires every route of the logbook API.
func NewRouter(logbook *LogbookHandler, authHandler *AuthHandler, authMW *middleware.AuthMiddleware, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	if cfg.RateLimitRequests > 0 {
		r.Use(middleware.NewRateLimitMiddleware().RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	r.Get("/health", Health)
	r.Post("/api/auth/login", authHandler.Login)

	r.Route("/api/vehicles", func(r chi.Router) {
		r.Use(authMW.Authenticate)

		view := authMW.RequirePermission(models.ActionViewVehicles)
		r.With(view).Get("/", logbook.ListVehicles)
		r.With(authMW.RequirePermission(models.ActionCreateVehicle)).Post("/", logbook.CreateVehicle)

		r.Route("/{plate}", func(r chi.Router) {
			r.With(view).Get("/", logbook.GetVehicle)
			r.With(view).Get("/alerts", logbook.GetAlerts)
			r.With(view).Get("/costs", logbook.GetCosts)
			r.With(authMW.RequirePermission(models.ActionExportLogbook)).Get("/export", logbook.ExportLogbook)
			r.With(authMW.RequirePermission(models.ActionCreateMaintenance)).Post("/records", logbook.AddRecord)
			r.With(authMW.RequirePermission(models.ActionUpdateMileage)).Put("/mileage", logbook.UpdateMileage)
		})
	})
	return r
}

// Health reports that the process is serving requests.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
