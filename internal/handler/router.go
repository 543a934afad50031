package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/z-support/backend/internal/config"
	"github.com/zhouzirui/z-support/backend/internal/handler/support"
	middlewarePkg "github.com/zhouzirui/z-support/backend/internal/middleware"
	supportService "github.com/zhouzirui/z-support/backend/internal/service/support"
	"github.com/zhouzirui/z-support/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the support service.
// idem may be nil, in which case POST replay is disabled.
func NewRouter(cfg *config.Config, supportSvc *supportService.Service, idem *middlewarePkg.Idempotency) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.Server.AllowedOrigins))

	supportHandler := support.New(supportSvc, cfg.Admin.Secret)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status": "ok",
				"admin":  cfg.Admin.Enabled(),
			})
		})

		api.Group(func(tickets chi.Router) {
			if idem != nil {
				tickets.Use(idem.Handler)
			}
			supportHandler.RegisterRoutes(tickets)
		})
	})

	return r
}
