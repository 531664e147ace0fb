package tracking

import (
	"context"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
)

type Repository interface {
	InsertTrackingEvent(ctx context.Context, e *models.TrackingEvent) error
	ListTrackingEvents(ctx context.Context, parcelID string) ([]*models.TrackingEvent, error)
}

// Ledger is the append-only history of parcel status events.
type Ledger struct {
	repo Repository
	now  func() time.Time
}

func New(repo Repository) *Ledger {
	return &Ledger{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (l *Ledger) Append(ctx context.Context, in models.TrackingEventInput) (*models.TrackingEvent, error) {
	if strings.TrimSpace(in.ParcelID) == "" {
		return nil, apperr.InvalidInput("parcel_id is required")
	}
	if strings.TrimSpace(in.Status) == "" {
		return nil, apperr.InvalidInput("status is required")
	}
	e := &models.TrackingEvent{
		ParcelID:   in.ParcelID,
		TrackingID: in.TrackingID,
		Status:     in.Status,
		Message:    in.Message,
		UpdatedBy:  in.UpdatedBy,
		CreatedAt:  l.now(),
	}
	if err := l.repo.InsertTrackingEvent(ctx, e); err != nil {
		return nil, apperr.Upstream(err, "append tracking event")
	}
	return e, nil
}

func (l *Ledger) List(ctx context.Context, parcelID string) ([]*models.TrackingEvent, error) {
	if strings.TrimSpace(parcelID) == "" {
		return nil, apperr.InvalidInput("parcel_id is required")
	}
	evs, err := l.repo.ListTrackingEvents(ctx, parcelID)
	if err != nil {
		return nil, apperr.Upstream(err, "list tracking events")
	}
	return evs, nil
}
