package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/campus-push/internal/config"
	"github.com/campus-push/internal/domain"
	"github.com/campus-push/internal/transport/http/handler"
	appmiddleware "github.com/campus-push/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Any verifier works for app routes; operator routes only trust operator JWTs.
	appAuth := appmiddleware.Auth(deps.verifiers()...)
	var operatorAuth func(http.Handler) http.Handler
	if deps.OperatorAuth != nil {
		operatorAuth = appmiddleware.Auth(deps.OperatorAuth)
	} else {
		operatorAuth = appmiddleware.Auth()
	}
	operators := appmiddleware.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin)

	// 5 requests/second, burst of 10, applied to public invite endpoints.
	inviteRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler(deps.HealthChecks)
	notifH := handler.NewNotificationHandler(deps.Notifications, deps.Trigger)
	deviceH := handler.NewDeviceHandler(deps.Devices)
	eventH := handler.NewEventHandler(deps.Trigger)
	inviteH := handler.NewInviteHandler(deps.Invites)
	adminH := handler.NewAdminHandler(deps.Admin)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(inviteRL.Limit).Post("/invites", inviteH.Create)
		r.With(inviteRL.Limit).Post("/invites/verify", inviteH.Verify)

		// ── App users ────────────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appAuth)

			r.Get("/notifications", notifH.List)
			r.Get("/notifications/{id}", notifH.Get)
			r.Put("/notifications/{id}/read", notifH.MarkAsRead)
			r.Get("/universities/{id}/notifications", notifH.ListForUniversity)
			r.Get("/devices/tokens", deviceH.List)
			r.Post("/devices/tokens", deviceH.Register)
			r.Delete("/devices/tokens/{token}", deviceH.Unregister)
		})

		// ── Operators ────────────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(operatorAuth, operators)

			r.Post("/notifications", notifH.Create)
			r.Post("/notifications/custom", notifH.SendCustom)
			r.Post("/notifications/{id}/dispatch", notifH.Dispatch)
			r.Post("/events/timetable", eventH.Timetable)
			r.Post("/events/lost-found", eventH.LostFound)
			r.Post("/events/marketplace", eventH.Marketplace)

			// Super-admin only
			r.Route("/admin", func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleSuperAdmin))

				r.Post("/super-admins", adminH.AddSuperAdmin)
				r.Post("/universities/seed", adminH.Seed)
				r.Post("/universities/{id}/admins", adminH.AddUniversityAdmin)
				r.Post("/universities/{id}/domains", adminH.AddDomain)
				r.Post("/recruiters/approve", adminH.ApproveRecruiters)
				r.Post("/announcements/migrate-images", adminH.MigrateImages)
				r.Post("/users", adminH.CreateUser)
			})
		})
	})

	return r
}
