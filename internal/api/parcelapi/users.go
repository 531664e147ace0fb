package parcelapi

import (
	"net/http"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/go-chi/chi/v5"
)

type upsertUserRequest struct {
	Email     string     `json:"email"`
	LastLogIn *time.Time `json:"last_log_in"`
}

func (a *API) upsertUser(w http.ResponseWriter, r *http.Request) {
	var req upsertUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	inserted, err := a.svc.Users.Upsert(r.Context(), req.Email, req.LastLogIn)
	if err != nil {
		writeError(w, err)
		return
	}
	if !inserted {
		writeJSON(w, http.StatusOK, map[string]any{"message": "User already exists", "inserted": false})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "User created", "inserted": true})
}

func (a *API) userRole(w http.ResponseWriter, r *http.Request) {
	role, err := a.svc.Users.Role(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.Role{"role": role})
}

func (a *API) searchUsers(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Users.Search(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) setUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := a.svc.Users.SetRole(r.Context(), chi.URLParam(r, "id"), req.Role); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Role updated to " + string(req.Role)})
}
