package rest

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi"

	"github.com/winstonacademy/crm-gateway/internal"
	"github.com/winstonacademy/crm-gateway/internal/session"
	"github.com/winstonacademy/crm-gateway/internal/telemetry"
	"github.com/winstonacademy/crm-gateway/internal/transport/middleware"
)

// collectionCapabilities maps each proxied CRM collection onto the session
// flag that gates it.
var collectionCapabilities = map[string]session.Capability{
	"students":   session.CapabilityStudents,
	"agencies":   session.CapabilityAgencies,
	"leads":      session.CapabilityLeads,
	"timesheets": session.CapabilityTimesheets,
	"users":      session.CapabilityUsers,
}

func RegisterAllRoutes(router *chi.Mux, cfg *internal.Config, manager *session.Manager, authHandler *AuthHandler, crmHandler *CRMHandler, upstream Pinger, logger *slog.Logger) {
	healthHandler := NewHealthHandler(upstream)

	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	if cfg.Observability.Metrics.Enabled {
		router.Handle(cfg.Observability.Metrics.Path, telemetry.Handler())
	}

	refreshUser := func(ctx context.Context) error {
		_, err := manager.RefreshUser(ctx)
		return err
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", authHandler.Login)
			sr.Post("/logout", authHandler.Logout)
			sr.Post("/refresh", authHandler.Refresh)
			sr.Get("/me", authHandler.Me)
		})

		// Protected CRM proxy. Entering a protected prefix also triggers a
		// throttled permission refresh, mirroring route-change behavior in
		// the front end.
		r.Group(func(pr chi.Router) {
			pr.Use(middleware.PermissionRefresh(refreshUser, cfg.Session.ProtectedPrefixes, cfg.Session.RefreshThrottle, logger))
			pr.Use(middleware.RequireSession(manager))

			pr.Route("/crm", func(cr chi.Router) {
				for collection, capability := range collectionCapabilities {
					collection := collection
					cr.Route("/"+collection, func(rr chi.Router) {
						rr.Use(middleware.RequireCapability(capability))
						rr.Get("/", crmHandler.List(collection))
						rr.Post("/", crmHandler.Create(collection))
						rr.Get("/{id}", crmHandler.Get(collection))
						rr.Put("/{id}", crmHandler.Update(collection))
						rr.Delete("/{id}", crmHandler.Delete(collection))
					})
				}
			})
		})
	})
}
