package parcelapi

import (
	"net/http"
	"strings"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/go-chi/chi/v5"
)

// createParcelRequest accepts the shipment fields either flat, as the web
// client sends them, or nested under "details". assigned_rider is never read
// from the body.
type createParcelRequest struct {
	TrackingID     string                `json:"tracking_id"`
	CreatedBy      string                `json:"created_by"`
	Cost           float64               `json:"cost"`
	PaymentStatus  models.PaymentStatus  `json:"payment_status"`
	DeliveryStatus models.DeliveryStatus `json:"delivery_status"`
	Nested         *models.ParcelDetails `json:"details"`
	models.ParcelDetails
}

func (req createParcelRequest) input() models.ParcelCreateInput {
	d := req.ParcelDetails
	if req.Nested != nil {
		d = *req.Nested
	}
	return models.ParcelCreateInput{
		TrackingID:     req.TrackingID,
		CreatedBy:      req.CreatedBy,
		Cost:           req.Cost,
		PaymentStatus:  req.PaymentStatus,
		DeliveryStatus: req.DeliveryStatus,
		Details:        d,
	}
}

type deliveryStatusRequest struct {
	DeliveryStatus models.DeliveryStatus `json:"delivery_status"`
}

func (a *API) createParcel(w http.ResponseWriter, r *http.Request) {
	var req createParcelRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	in := req.input()
	if !in.IsEmpty() {
		owner, err := a.scopedEmail(r, in.CreatedBy)
		if err != nil {
			writeError(w, err)
			return
		}
		in.CreatedBy = owner
	}
	p, err := a.svc.Parcels.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// listParcels without an email lists every parcel and is admin-only.
func (a *API) listParcels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	email := strings.TrimSpace(q.Get("email"))
	if email == "" {
		admin, err := a.isAdmin(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if !admin {
			writeError(w, apperr.Forbidden("Forbidden Access"))
			return
		}
	} else {
		var err error
		if email, err = a.scopedEmail(r, email); err != nil {
			writeError(w, err)
			return
		}
	}
	out, err := a.svc.Parcels.List(r.Context(), email,
		models.PaymentStatus(q.Get("payment_status")),
		models.DeliveryStatus(q.Get("delivery_status")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) userParcels(w http.ResponseWriter, r *http.Request) {
	email, err := a.scopedEmail(r, r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := a.svc.Parcels.List(r.Context(), email, "", "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getParcel(w http.ResponseWriter, r *http.Request) {
	p, err := a.svc.Parcels.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// deleteParcel removes the parcel for its creator or an admin. Payments and
// tracking history stay.
func (a *API) deleteParcel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := a.svc.Parcels.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := a.scopedEmail(r, p.CreatedBy); err != nil {
		writeError(w, err)
		return
	}
	if err := a.svc.Parcels.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Parcel deleted successfully")
}

func (a *API) parcelTracking(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Tracking.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) updateDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	var req deliveryStatusRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := a.svc.Dispatch.UpdateDeliveryStatus(r.Context(), chi.URLParam(r, "id"), req.DeliveryStatus, a.actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "parcel": p})
}

func (a *API) overrideDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	var req deliveryStatusRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := a.svc.Dispatch.OverrideDeliveryStatus(r.Context(), chi.URLParam(r, "id"), req.DeliveryStatus, a.actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "parcel": p})
}

func (a *API) assignRider(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RiderID string `json:"riderId"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	snap, err := a.svc.Dispatch.AssignRider(r.Context(), chi.URLParam(r, "id"), req.RiderID, a.actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Rider assigned successfully",
		"assignedRider": snap,
	})
}

func (a *API) riderStatusCount(w http.ResponseWriter, r *http.Request) {
	email, err := ownEmail(r, r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := a.svc.Dashboard.RiderStatusCounts(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) riderPendingParcels(w http.ResponseWriter, r *http.Request) {
	email, err := ownEmail(r, r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := a.svc.Dispatch.PendingForRider(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) riderDeliveredParcels(w http.ResponseWriter, r *http.Request) {
	email, err := ownEmail(r, r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := a.svc.Dispatch.DeliveredForRider(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) userSummary(w http.ResponseWriter, r *http.Request) {
	email, err := ownEmail(r, chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := a.svc.Dashboard.UserSummary(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) adminSummary(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Dashboard.AdminSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) adminPaidParcels(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Parcels.ListPaid(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
