package parcels

import (
	"context"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/google/uuid"
)

type Repository interface {
	CreateParcel(ctx context.Context, p *models.Parcel) error
	GetParcel(ctx context.Context, id string) (*models.Parcel, error)
	ListParcels(ctx context.Context, f models.ParcelFilter) ([]*models.Parcel, error)
	DeleteParcel(ctx context.Context, id string) (bool, error)
}

// Service is the parcel store: creation defaults, lookups and removal.
// Lifecycle writes after creation belong to the dispatch and payments
// services.
type Service struct {
	repo Repository
	now  func() time.Time
}

func New(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Create(ctx context.Context, in models.ParcelCreateInput) (*models.Parcel, error) {
	if in.IsEmpty() {
		return nil, apperr.InvalidInput("Parcel data is required")
	}
	if in.Cost < 0 {
		return nil, apperr.InvalidInput("cost must not be negative")
	}

	p := &models.Parcel{
		TrackingID:     strings.TrimSpace(in.TrackingID),
		CreatedBy:      strings.TrimSpace(in.CreatedBy),
		Cost:           in.Cost,
		PaymentStatus:  models.PaymentUnpaid,
		DeliveryStatus: models.DeliveryNotCollected,
		Details:        in.Details,
		CreationDate:   s.now(),
	}
	if in.PaymentStatus != "" {
		if !in.PaymentStatus.Valid() {
			return nil, apperr.InvalidInput("invalid payment_status %q", in.PaymentStatus)
		}
		p.PaymentStatus = in.PaymentStatus
	}
	// A new parcel has no rider snapshot, so only not_collected is a valid
	// initial delivery status.
	if in.DeliveryStatus != "" {
		if !in.DeliveryStatus.Valid() {
			return nil, apperr.InvalidInput("invalid delivery_status %q", in.DeliveryStatus)
		}
		if in.DeliveryStatus.RequiresRider() {
			return nil, apperr.InvalidInput("delivery_status %q requires an assigned rider", in.DeliveryStatus)
		}
	}
	if p.TrackingID == "" {
		p.TrackingID = newTrackingID()
	}

	if err := s.repo.CreateParcel(ctx, p); err != nil {
		return nil, apperr.Upstream(err, "Failed to add parcel")
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Parcel, error) {
	p, err := s.repo.GetParcel(ctx, id)
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to fetch parcel")
	}
	return p, nil
}

// List returns parcels newest-creation-first; empty filter fields match all.
func (s *Service) List(ctx context.Context, createdBy string, payment models.PaymentStatus, delivery models.DeliveryStatus) ([]*models.Parcel, error) {
	f := models.ParcelFilter{CreatedBy: createdBy, PaymentStatus: payment}
	if payment != "" && !payment.Valid() {
		return nil, apperr.InvalidInput("invalid payment_status %q", payment)
	}
	if delivery != "" {
		if !delivery.Valid() {
			return nil, apperr.InvalidInput("invalid delivery_status %q", delivery)
		}
		f.DeliveryStatuses = []models.DeliveryStatus{delivery}
	}
	out, err := s.repo.ListParcels(ctx, f)
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to fetch parcels")
	}
	return out, nil
}

// ListPaid is the admin operations view: paid parcels in every delivery
// status, most recently updated first.
func (s *Service) ListPaid(ctx context.Context) ([]*models.Parcel, error) {
	out, err := s.repo.ListParcels(ctx, models.ParcelFilter{
		PaymentStatus:    models.PaymentPaid,
		DeliveryStatuses: models.DeliveryLifecycle,
		OrderBy:          models.OrderByUpdatedDesc,
	})
	if err != nil {
		return nil, apperr.Upstream(err, "Internal Server Error")
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.DeleteParcel(ctx, id)
	if err != nil {
		return apperr.Upstream(err, "Failed to delete parcel")
	}
	if !ok {
		return apperr.NotFound("Parcel not found")
	}
	return nil
}

func newTrackingID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PCL-" + strings.ToUpper(raw[:12])
}
