package riders

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/models"
)

type Repository interface {
	CreateRider(ctx context.Context, r *models.Rider) error
	GetRider(ctx context.Context, id string) (*models.Rider, error)
	ListRiders(ctx context.Context, f models.RiderFilter) ([]*models.Rider, error)
	SetRiderStatus(ctx context.Context, id string, from, to models.RiderStatus, at time.Time) (bool, error)
}

// RoleGranter elevates the user behind an approved rider.
type RoleGranter interface {
	PromoteToRider(ctx context.Context, email string, approvedAt time.Time) (bool, error)
}

// Registry owns the rider approval workflow.
type Registry struct {
	repo     Repository
	roles    RoleGranter
	producer messages.Producer
	topic    string
	now      func() time.Time
}

func New(repo Repository, roles RoleGranter, producer messages.Producer, approvedTopic string) *Registry {
	return &Registry{
		repo:     repo,
		roles:    roles,
		producer: producer,
		topic:    approvedTopic,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *Registry) Apply(ctx context.Context, in models.Rider) (*models.Rider, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" {
		return nil, apperr.InvalidInput("Rider email is required")
	}
	if in.Name == "" {
		return nil, apperr.InvalidInput("Rider name is required")
	}
	if in.Age < 0 {
		return nil, apperr.InvalidInput("age must not be negative")
	}
	in.ID = ""
	in.Status = models.RiderPending
	in.CreatedAt = r.now()
	in.UpdatedAt = nil
	if err := r.repo.CreateRider(ctx, &in); err != nil {
		return nil, apperr.Upstream(err, "Failed to create rider")
	}
	return &in, nil
}

// Decide approves or rejects a pending rider. On approval a plain user is
// promoted to the rider role (admins keep theirs); that write is best-effort
// and a failure leaves the approval in place for the reconciler to converge.
func (r *Registry) Decide(ctx context.Context, id string, decision models.RiderStatus) (*models.Rider, error) {
	if decision != models.RiderApproved && decision != models.RiderRejected {
		return nil, apperr.InvalidInput("status must be approved or rejected")
	}
	rider, err := r.move(ctx, id, decision)
	if err != nil {
		return nil, err
	}
	if decision != models.RiderApproved {
		return rider, nil
	}

	if r.roles != nil {
		if _, err := r.roles.PromoteToRider(ctx, rider.Email, *rider.UpdatedAt); err != nil {
			slog.Warn("elevate rider role", "rider_id", rider.ID, "email", rider.Email, "error", err.Error())
		}
	}
	messages.Publish(ctx, r.producer, r.topic, rider.ID, messages.RiderApproved{
		RiderID:    rider.ID,
		Email:      rider.Email,
		ApprovedAt: *rider.UpdatedAt,
	})
	return rider, nil
}

// Deactivate retires an approved rider. The user's role is left as is.
func (r *Registry) Deactivate(ctx context.Context, id string) (*models.Rider, error) {
	return r.move(ctx, id, models.RiderDeactivated)
}

func (r *Registry) move(ctx context.Context, id string, to models.RiderStatus) (*models.Rider, error) {
	rider, err := r.repo.GetRider(ctx, id)
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to update rider status")
	}
	if !rider.Status.CanMoveTo(to) {
		return nil, apperr.InvalidTransition("rider is %s, cannot become %s", rider.Status, to)
	}
	at := r.now()
	ok, err := r.repo.SetRiderStatus(ctx, id, rider.Status, to, at)
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to update rider status")
	}
	if !ok {
		// someone else moved the rider between the read and the write
		return nil, apperr.InvalidTransition("rider status changed concurrently")
	}
	rider.Status = to
	rider.UpdatedAt = &at
	return rider, nil
}

func (r *Registry) List(ctx context.Context, status models.RiderStatus, name string) ([]*models.Rider, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.InvalidInput("invalid rider status %q", status)
	}
	out, err := r.repo.ListRiders(ctx, models.RiderFilter{Status: status, Name: strings.TrimSpace(name)})
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to fetch riders")
	}
	return out, nil
}

func (r *Registry) ListPending(ctx context.Context) ([]*models.Rider, error) {
	out, err := r.repo.ListRiders(ctx, models.RiderFilter{Status: models.RiderPending})
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to fetch pending riders")
	}
	return out, nil
}
