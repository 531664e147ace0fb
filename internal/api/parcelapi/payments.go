package parcelapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
)

type recordPaymentRequest struct {
	ParcelID      string  `json:"parcelId"`
	Email         string  `json:"email"`
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transactionId"`
	Method        string  `json:"paymentMethod"`
}

type trackingRequest struct {
	TrackingID string `json:"tracking_id"`
	ParcelID   string `json:"parcel_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	// Massage is the key older web clients send the note under.
	Massage  string `json:"massage"`
	UpdateBy string `json:"update_by"`
}

func (a *API) listPayments(w http.ResponseWriter, r *http.Request) {
	email, err := a.scopedEmail(r, r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := a.svc.Payments.ListPayments(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	email, err := a.scopedEmail(r, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := a.svc.Payments.RecordPayment(r.Context(), models.PaymentInput{
		ParcelID:      req.ParcelID,
		Email:         email,
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
		Method:        req.Method,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Payment recorded", "payment": p})
}

// createPaymentIntent is throttled per principal when a limiter is wired. A
// limiter failure lets the request through.
func (a *API) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AmountInCents int64 `json:"amountInCents"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	payer := principalFrom(r.Context()).Email
	if a.opts.RateLimiter != nil && a.opts.IntentRateLimitPerMinute > 0 {
		key := "intent:" + strings.ToLower(payer)
		ok, _, err := a.opts.RateLimiter.Allow(r.Context(), key, a.opts.IntentRateLimitPerMinute, time.Minute)
		if err != nil {
			slog.Warn("payment intent rate limit", "key", key, "error", err.Error())
		} else if !ok {
			writeMessage(w, http.StatusTooManyRequests, "Too many payment attempts, try again later")
			return
		}
	}

	secret, err := a.svc.Payments.CreatePaymentIntent(r.Context(), payer, req.AmountInCents, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"clientSecret": secret})
}

func (a *API) appendTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	msg := req.Message
	if msg == "" {
		msg = req.Massage
	}
	// the actor is the principal unless an admin records on someone's behalf
	actor, err := a.scopedEmail(r, req.UpdateBy)
	if err != nil {
		writeError(w, err)
		return
	}
	ev, err := a.svc.Tracking.Append(r.Context(), models.TrackingEventInput{
		ParcelID:   req.ParcelID,
		TrackingID: req.TrackingID,
		Status:     req.Status,
		Message:    msg,
		UpdatedBy:  actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}
