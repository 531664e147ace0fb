package parcelapi

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/services/dashboard"
	"github.com/BearBump/ParcelBox/internal/services/dispatch"
	"github.com/BearBump/ParcelBox/internal/services/identity"
	"github.com/BearBump/ParcelBox/internal/services/parcels"
	"github.com/BearBump/ParcelBox/internal/services/payments"
	"github.com/BearBump/ParcelBox/internal/services/riders"
	"github.com/BearBump/ParcelBox/internal/services/tracking"
	"github.com/BearBump/ParcelBox/internal/services/users"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Gate resolves the principal behind a request and checks its current role.
type Gate interface {
	Authenticate(header string) (identity.Principal, error)
	Authorize(ctx context.Context, p identity.Principal, roles ...models.Role) (models.Role, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Services struct {
	Users     *users.Service
	Parcels   *parcels.Service
	Riders    *riders.Registry
	Dispatch  *dispatch.Engine
	Payments  *payments.Reconciler
	Tracking  *tracking.Ledger
	Dashboard *dashboard.Service
}

type Options struct {
	// SwaggerPath is optional; /swagger.json and /docs/* are only mounted
	// when it points to an existing file.
	SwaggerPath string

	RateLimiter              RateLimiter
	IntentRateLimitPerMinute int64
}

type API struct {
	gate Gate
	svc  Services
	opts Options
}

func New(gate Gate, svc Services, opts Options) *API {
	return &API{gate: gate, svc: svc, opts: opts}
}

// Router builds the full HTTP surface.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	a.mountSwagger(r)

	r.Post("/users", a.upsertUser)

	r.Group(func(r chi.Router) {
		r.Use(a.authenticated)

		r.Get("/users/{email}/role", a.userRole)
		r.With(a.requireRole(models.RoleAdmin)).Get("/users/search", a.searchUsers)
		r.With(a.requireRole(models.RoleAdmin)).Patch("/users/{id}/role", a.setUserRole)

		r.Get("/user/parcels", a.userParcels)
		r.With(a.requireRole(models.RoleUser)).Get("/user/parcels/summary/{email}", a.userSummary)

		r.Route("/parcels", func(r chi.Router) {
			r.Post("/", a.createParcel)
			r.Get("/", a.listParcels)
			r.With(a.requireRole(models.RoleRider)).Get("/rider/status-count", a.riderStatusCount)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.getParcel)
				r.Delete("/", a.deleteParcel)
				r.Get("/tracking", a.parcelTracking)
				r.With(a.requireRole(models.RoleRider, models.RoleAdmin)).Patch("/status", a.updateDeliveryStatus)
				r.With(a.requireRole(models.RoleAdmin)).Patch("/status/override", a.overrideDeliveryStatus)
				r.With(a.requireRole(models.RoleAdmin)).Patch("/assign-rider", a.assignRider)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(a.requireRole(models.RoleRider))
			r.Get("/rider/parcels", a.riderPendingParcels)
			r.Get("/rider/deliveredParcels", a.riderDeliveredParcels)
		})

		r.Route("/riders", func(r chi.Router) {
			r.Post("/", a.applyRider)
			r.Group(func(r chi.Router) {
				r.Use(a.requireRole(models.RoleAdmin))
				r.Get("/", a.listRiders)
				r.Get("/pending", a.pendingRiders)
				r.Patch("/{id}", a.decideRider)
				r.Patch("/{id}/deactivate", a.deactivateRider)
			})
		})

		r.Get("/payments", a.listPayments)
		r.Post("/payments", a.recordPayment)
		r.Post("/create-payment-intent", a.createPaymentIntent)
		r.Post("/tracking", a.appendTracking)

		r.Group(func(r chi.Router) {
			r.Use(a.requireRole(models.RoleAdmin))
			r.Get("/admin/dashboard/summary", a.adminSummary)
			r.Get("/admin/parcels/status", a.adminPaidParcels)
		})
	})

	return r
}

func (a *API) mountSwagger(r chi.Router) {
	if a.opts.SwaggerPath == "" {
		return
	}
	if _, err := os.Stat(a.opts.SwaggerPath); err != nil {
		return
	}
	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, a.opts.SwaggerPath)
	})
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/swagger.json")))
}
