package parcelapi

import (
	"net/http"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/go-chi/chi/v5"
)

type applyRiderRequest struct {
	Email            string `json:"email"`
	Name             string `json:"name"`
	Contact          string `json:"contact"`
	Region           string `json:"region"`
	District         string `json:"district"`
	Age              int    `json:"age"`
	NID              string `json:"nid"`
	BikeBrand        string `json:"bike_brand"`
	BikeRegistration string `json:"bike_registration"`
}

// applyRider files an application for the caller; admins may file one for
// someone else.
func (a *API) applyRider(w http.ResponseWriter, r *http.Request) {
	var req applyRiderRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	email, err := a.scopedEmail(r, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	rider, err := a.svc.Riders.Apply(r.Context(), models.Rider{
		Email:            email,
		Name:             req.Name,
		Contact:          req.Contact,
		Region:           req.Region,
		District:         req.District,
		Age:              req.Age,
		NID:              req.NID,
		BikeBrand:        req.BikeBrand,
		BikeRegistration: req.BikeRegistration,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rider)
}

func (a *API) listRiders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := a.svc.Riders.List(r.Context(), models.RiderStatus(q.Get("status")), q.Get("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) pendingRiders(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Riders.ListPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) decideRider(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.RiderStatus `json:"status"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rider, err := a.svc.Riders.Decide(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rider)
}

func (a *API) deactivateRider(w http.ResponseWriter, r *http.Request) {
	rider, err := a.svc.Riders.Deactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rider)
}
