package dispatch

import (
	"context"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/models"
)

type Repository interface {
	GetParcel(ctx context.Context, id string) (*models.Parcel, error)
	GetRider(ctx context.Context, id string) (*models.Rider, error)
	ListParcels(ctx context.Context, f models.ParcelFilter) ([]*models.Parcel, error)
	AssignRider(ctx context.Context, id string, rider models.RiderSnapshot, at time.Time) (bool, error)
	AdvanceDeliveryStatus(ctx context.Context, id string, from, to models.DeliveryStatus, at time.Time) (bool, error)
	SetDeliveryStatus(ctx context.Context, id string, status models.DeliveryStatus, at time.Time) (bool, error)
	SetAssignment(ctx context.Context, id string, status models.DeliveryStatus, rider *models.RiderSnapshot, at time.Time) (bool, error)
}

type Ledger interface {
	Append(ctx context.Context, in models.TrackingEventInput) (*models.TrackingEvent, error)
}

// Actor is the authenticated principal driving a transition.
type Actor struct {
	Email string
	Role  models.Role
}

// Engine owns delivery_status and assigned_rider. Every change it makes is a
// single-row conditional write followed by a tracking event and a
// status_changed notification.
type Engine struct {
	repo     Repository
	ledger   Ledger
	producer messages.Producer
	topic    string
	now      func() time.Time
}

func New(repo Repository, ledger Ledger, producer messages.Producer, statusTopic string) *Engine {
	return &Engine{
		repo:     repo,
		ledger:   ledger,
		producer: producer,
		topic:    statusTopic,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AssignRider puts an approved rider on a parcel that is not yet collected,
// or replaces the rider of an assigned one. The rider entity is not touched.
func (e *Engine) AssignRider(ctx context.Context, parcelID, riderID string, actor Actor) (*models.RiderSnapshot, error) {
	if riderID == "" {
		return nil, apperr.InvalidInput("riderId is required")
	}
	rider, err := e.repo.GetRider(ctx, riderID)
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to assign rider")
	}
	if rider.Status != models.RiderApproved {
		return nil, apperr.InvalidTransition("rider is %s, only approved riders can be assigned", rider.Status)
	}
	p, err := e.repo.GetParcel(ctx, parcelID)
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to assign rider")
	}
	if !p.DeliveryStatus.Assignable() {
		return nil, apperr.InvalidTransition("parcel is %s, rider can no longer be assigned", p.DeliveryStatus)
	}

	snap := rider.Snapshot()
	at := e.now()
	ok, err := e.repo.AssignRider(ctx, parcelID, snap, at)
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to assign rider")
	}
	if !ok {
		return nil, e.missOrMoved(ctx, parcelID)
	}

	if err := e.record(ctx, p, models.DeliveryAssigned, snap.Email, actor, false, at); err != nil {
		return nil, err
	}
	return &snap, nil
}

// UpdateDeliveryStatus is the guarded path: one step forward at a time.
// Entering assigned is reserved to AssignRider.
func (e *Engine) UpdateDeliveryStatus(ctx context.Context, parcelID string, to models.DeliveryStatus, actor Actor) (*models.Parcel, error) {
	if !to.Valid() {
		return nil, apperr.InvalidInput("invalid delivery_status %q", to)
	}
	p, err := e.repo.GetParcel(ctx, parcelID)
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to update parcel status")
	}
	if actor.Role == models.RoleRider && (p.AssignedRider == nil || p.AssignedRider.Email != actor.Email) {
		return nil, apperr.Forbidden("Forbidden Access")
	}
	if to == models.DeliveryAssigned {
		return nil, apperr.InvalidTransition("use rider assignment to move a parcel to assigned")
	}
	next, ok := p.DeliveryStatus.Next()
	if !ok || next != to {
		return nil, apperr.InvalidTransition("cannot move parcel from %s to %s", p.DeliveryStatus, to)
	}

	at := e.now()
	matched, err := e.repo.AdvanceDeliveryStatus(ctx, parcelID, p.DeliveryStatus, to, at)
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to update parcel status")
	}
	if !matched {
		return nil, e.missOrMoved(ctx, parcelID)
	}

	if err := e.record(ctx, p, to, riderEmail(p.AssignedRider), actor, false, at); err != nil {
		return nil, err
	}
	p.DeliveryStatus = to
	p.UpdatedAt = &at
	return p, nil
}

// OverrideDeliveryStatus lets an admin put a parcel in any status. The rider
// invariant still holds: not_collected drops the snapshot, and rider-bearing
// statuses need one already present.
func (e *Engine) OverrideDeliveryStatus(ctx context.Context, parcelID string, to models.DeliveryStatus, actor Actor) (*models.Parcel, error) {
	if !to.Valid() {
		return nil, apperr.InvalidInput("invalid delivery_status %q", to)
	}
	p, err := e.repo.GetParcel(ctx, parcelID)
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to update parcel status")
	}
	if to.RequiresRider() && p.AssignedRider == nil {
		return nil, apperr.InvalidTransition("parcel has no assigned rider, assign one first")
	}

	at := e.now()
	var matched bool
	if to.RequiresRider() {
		matched, err = e.repo.SetDeliveryStatus(ctx, parcelID, to, at)
	} else {
		matched, err = e.repo.SetAssignment(ctx, parcelID, to, nil, at)
	}
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to update parcel status")
	}
	if !matched {
		return nil, apperr.NotFound("Parcel not found")
	}

	rider := riderEmail(p.AssignedRider)
	if err := e.record(ctx, p, to, rider, actor, true, at); err != nil {
		return nil, err
	}
	p.DeliveryStatus = to
	p.UpdatedAt = &at
	if !to.RequiresRider() {
		p.AssignedRider = nil
	}
	return p, nil
}

// PendingForRider lists the rider's assigned and in-transit parcels, most
// recently updated first.
func (e *Engine) PendingForRider(ctx context.Context, email string) ([]*models.Parcel, error) {
	if email == "" {
		return nil, apperr.InvalidInput("Rider email is required")
	}
	out, err := e.repo.ListParcels(ctx, models.ParcelFilter{
		RiderEmail:       email,
		DeliveryStatuses: []models.DeliveryStatus{models.DeliveryAssigned, models.DeliveryTransit},
		OrderBy:          models.OrderByUpdatedDesc,
	})
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to fetch pending deliveries")
	}
	if len(out) == 0 {
		return nil, apperr.NoContent("No pending deliveries found")
	}
	return out, nil
}

func (e *Engine) DeliveredForRider(ctx context.Context, email string) ([]*models.Parcel, error) {
	if email == "" {
		return nil, apperr.InvalidInput("Rider email is required")
	}
	out, err := e.repo.ListParcels(ctx, models.ParcelFilter{
		RiderEmail:       email,
		DeliveryStatuses: []models.DeliveryStatus{models.DeliveryDelivered},
		OrderBy:          models.OrderByUpdatedDesc,
	})
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to fetch delivered parcels")
	}
	return out, nil
}

func (e *Engine) record(ctx context.Context, p *models.Parcel, to models.DeliveryStatus, rider string, actor Actor, override bool, at time.Time) error {
	if e.ledger != nil {
		if _, err := e.ledger.Append(ctx, models.TrackingEventInput{
			ParcelID:   p.ID,
			TrackingID: p.TrackingID,
			Status:     string(to),
			Message:    transitionNote(p.DeliveryStatus, to, rider, override),
			UpdatedBy:  actor.Email,
		}); err != nil {
			return apperr.Upstream(err, "append tracking event")
		}
	}
	messages.Publish(ctx, e.producer, e.topic, p.ID, messages.ParcelStatusChanged{
		ParcelID:   p.ID,
		TrackingID: p.TrackingID,
		From:       string(p.DeliveryStatus),
		To:         string(to),
		RiderEmail: rider,
		UpdatedBy:  actor.Email,
		Override:   override,
		ChangedAt:  at,
	})
	return nil
}

// missOrMoved explains a conditional write that matched no row.
func (e *Engine) missOrMoved(ctx context.Context, parcelID string) error {
	cur, err := e.repo.GetParcel(ctx, parcelID)
	if err != nil {
		return apperr.Upstream(err, "Failed to update parcel status")
	}
	return apperr.InvalidTransition("parcel moved to %s concurrently", cur.DeliveryStatus)
}

func transitionNote(from, to models.DeliveryStatus, rider string, override bool) string {
	switch {
	case override:
		return "status set from " + string(from) + " to " + string(to) + " by admin"
	case to == models.DeliveryAssigned && rider != "":
		return "assigned to " + rider
	default:
		return string(from) + " -> " + string(to)
	}
}

func riderEmail(s *models.RiderSnapshot) string {
	if s == nil {
		return ""
	}
	return s.Email
}
