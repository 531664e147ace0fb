package payments

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/cache"
	"github.com/BearBump/ParcelBox/internal/integrations/gateway"
	"github.com/BearBump/ParcelBox/internal/models"
)

type Repository interface {
	SetPaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (bool, error)
	InsertPayment(ctx context.Context, p *models.Payment) error
	ListPaymentsByEmail(ctx context.Context, email string) ([]*models.Payment, error)
}

// Reconciler owns payment_status and the payment records.
type Reconciler struct {
	repo     Repository
	gw       gateway.Client
	currency string
	producer messages.Producer
	topic    string

	cache     cache.BytesCache
	intentTTL time.Duration

	now func() time.Time
}

func New(repo Repository, gw gateway.Client, currency string, producer messages.Producer, recordedTopic string) *Reconciler {
	if currency == "" {
		currency = "usd"
	}
	return &Reconciler{
		repo:     repo,
		gw:       gw,
		currency: currency,
		producer: producer,
		topic:    recordedTopic,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithIdempotencyCache makes CreatePaymentIntent return the same secret for
// repeated calls with one idempotency key within ttl.
func (r *Reconciler) WithIdempotencyCache(c cache.BytesCache, ttl time.Duration) *Reconciler {
	r.cache = c
	r.intentTTL = ttl
	return r
}

// RecordPayment marks the parcel paid and appends a success record. The two
// writes are independent: a failed insert leaves the parcel paid, and every
// call appends another record.
func (r *Reconciler) RecordPayment(ctx context.Context, in models.PaymentInput) (*models.Payment, error) {
	if strings.TrimSpace(in.ParcelID) == "" {
		return nil, apperr.InvalidInput("parcelId is required")
	}
	if in.Amount < 0 {
		return nil, apperr.InvalidInput("amount must not be negative")
	}

	ok, err := r.repo.SetPaymentStatus(ctx, in.ParcelID, models.PaymentPaid)
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to record payment")
	}
	if !ok {
		return nil, apperr.NotFound("Parcel not found")
	}

	p := &models.Payment{
		ParcelID:      in.ParcelID,
		Email:         in.Email,
		Amount:        in.Amount,
		TransactionID: in.TransactionID,
		Method:        in.Method,
		Status:        models.PaymentRecordSuccess,
		PaidAt:        r.now(),
	}
	if err := r.repo.InsertPayment(ctx, p); err != nil {
		return nil, apperr.Upstream(err, "Failed to record payment")
	}

	messages.Publish(ctx, r.producer, r.topic, p.ParcelID, messages.PaymentRecorded{
		PaymentID:     p.ID,
		ParcelID:      p.ParcelID,
		Email:         p.Email,
		Amount:        p.Amount,
		TransactionID: p.TransactionID,
		PaidAt:        p.PaidAt,
	})
	return p, nil
}

func (r *Reconciler) ListPayments(ctx context.Context, email string) ([]*models.Payment, error) {
	out, err := r.repo.ListPaymentsByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to fetch payments")
	}
	return out, nil
}

// CreatePaymentIntent asks the gateway for an intent and returns its client
// secret. Nothing is stored locally except the optional idempotency entry,
// which is scoped to the payer and remembers the amount it was created for.
func (r *Reconciler) CreatePaymentIntent(ctx context.Context, payer string, amountInCents int64, idempotencyKey string) (string, error) {
	if amountInCents <= 0 {
		return "", apperr.InvalidInput("amountInCents must be positive")
	}

	key := ""
	if r.cache != nil && r.intentTTL > 0 && idempotencyKey != "" {
		key = intentKey(payer, idempotencyKey)
		b, ok, err := r.cache.Get(ctx, key)
		switch {
		case err != nil:
			slog.Warn("idempotency cache get", "key", key, "error", err.Error())
		case ok:
			var cached cachedIntent
			if err := json.Unmarshal(b, &cached); err != nil {
				slog.Warn("idempotency cache decode", "key", key, "error", err.Error())
				break
			}
			if cached.Amount != amountInCents {
				return "", apperr.InvalidInput("Idempotency-Key was already used with a different amount")
			}
			return cached.ClientSecret, nil
		}
	}

	in, err := r.gw.CreatePaymentIntent(ctx, amountInCents, r.currency)
	if err != nil {
		return "", apperr.Upstream(err, "Payment initiation failed")
	}

	if key != "" {
		b, _ := json.Marshal(cachedIntent{ClientSecret: in.ClientSecret, Amount: amountInCents})
		if err := r.cache.Set(ctx, key, b, r.intentTTL); err != nil {
			slog.Warn("idempotency cache set", "key", key, "error", err.Error())
		}
	}
	return in.ClientSecret, nil
}

type cachedIntent struct {
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
}

func intentKey(payer, k string) string {
	return "intent:" + strings.ToLower(strings.TrimSpace(payer)) + ":" + k
}
