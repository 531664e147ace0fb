package parcelapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/services/dispatch"
	"github.com/BearBump/ParcelBox/internal/services/identity"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const (
	principalKey ctxKey = iota
	roleKey
)

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// authenticated rejects requests without a valid bearer token and stores the
// principal in the request context.
func (a *API) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.gate.Authenticate(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

// requireRole lets the request through when the principal currently holds one
// of roles. The role is read from the user record on every request.
func (a *API) requireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := a.gate.Authorize(r.Context(), principalFrom(r.Context()), roles...)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), roleKey, role)))
		})
	}
}

func principalFrom(ctx context.Context) identity.Principal {
	p, _ := ctx.Value(principalKey).(identity.Principal)
	return p
}

// isAdmin uses the role resolved by requireRole when there is one and asks
// the gate otherwise.
func (a *API) isAdmin(r *http.Request) (bool, error) {
	if role, ok := r.Context().Value(roleKey).(models.Role); ok {
		return role == models.RoleAdmin, nil
	}
	_, err := a.gate.Authorize(r.Context(), principalFrom(r.Context()), models.RoleAdmin)
	if err == nil {
		return true, nil
	}
	if apperr.KindOf(err) == apperr.KindForbidden {
		return false, nil
	}
	return false, err
}

// scopedEmail resolves the email a query acts on. Empty means the principal's
// own; anyone else's is only readable by admins.
func (a *API) scopedEmail(r *http.Request, email string) (string, error) {
	own := principalFrom(r.Context()).Email
	email = strings.TrimSpace(email)
	if email == "" || strings.EqualFold(email, own) {
		return own, nil
	}
	admin, err := a.isAdmin(r)
	if err != nil {
		return "", err
	}
	if !admin {
		return "", apperr.Forbidden("Forbidden Access")
	}
	return email, nil
}

// ownEmail is scopedEmail without the admin escape hatch, for routes that
// only ever show the caller their own data.
func ownEmail(r *http.Request, email string) (string, error) {
	own := principalFrom(r.Context()).Email
	email = strings.TrimSpace(email)
	if email == "" || strings.EqualFold(email, own) {
		return own, nil
	}
	return "", apperr.Forbidden("Forbidden Access")
}

func (a *API) actor(r *http.Request) dispatch.Actor {
	role, _ := r.Context().Value(roleKey).(models.Role)
	return dispatch.Actor{Email: principalFrom(r.Context()).Email, Role: role}
}
