package dashboard

import (
	"context"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
)

// Repository computes the aggregates in the store; no parcel rows are loaded.
type Repository interface {
	ParcelStats(ctx context.Context, f models.ParcelFilter) (models.ParcelStats, error)
	CountParcelsByStatus(ctx context.Context, f models.ParcelFilter) (map[models.DeliveryStatus]int64, error)
	CountRidersByStatus(ctx context.Context, status models.RiderStatus) (int64, error)
}

type StatusCount struct {
	Status models.DeliveryStatus `json:"status"`
	Count  int64                 `json:"count"`
}

type UserSummary struct {
	TotalCreated   int64   `json:"totalCreated"`
	TotalUnpaid    int64   `json:"totalUnpaid"`
	TotalDelivered int64   `json:"totalDelivered"`
	TotalCostPaid  float64 `json:"totalCostPaid"`
}

type AdminSummary struct {
	TotalActiveRiders       int64 `json:"totalActiveRiders"`
	TotalNotAssignedParcels int64 `json:"totalNotAssignedParcels"`
	TotalDelivered          int64 `json:"totalDelivered"`
	// TotalEarn is not computed yet and is always zero.
	TotalEarn float64 `json:"totalEarn"`
}

// Service derives read-only views from current state on every call.
type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) RiderStatusCounts(ctx context.Context, email string) ([]StatusCount, error) {
	if email == "" {
		return nil, apperr.InvalidInput("Rider email is required")
	}
	counts, err := s.repo.CountParcelsByStatus(ctx, models.ParcelFilter{RiderEmail: email})
	if err != nil {
		return nil, apperr.Upstream(err, "Failed to fetch rider parcels")
	}
	return inLifecycleOrder(counts), nil
}

func (s *Service) UserSummary(ctx context.Context, email string) (UserSummary, error) {
	st, err := s.repo.ParcelStats(ctx, models.ParcelFilter{CreatedBy: email})
	if err != nil {
		return UserSummary{}, apperr.Upstream(err, "Failed to fetch parcels")
	}
	return UserSummary{
		TotalCreated:   st.Total,
		TotalUnpaid:    st.Unpaid,
		TotalDelivered: st.Delivered,
		TotalCostPaid:  st.PaidCost,
	}, nil
}

func (s *Service) AdminSummary(ctx context.Context) (AdminSummary, error) {
	active, err := s.repo.CountRidersByStatus(ctx, models.RiderApproved)
	if err != nil {
		return AdminSummary{}, apperr.Upstream(err, "Failed to load dashboard summary")
	}
	st, err := s.repo.ParcelStats(ctx, models.ParcelFilter{})
	if err != nil {
		return AdminSummary{}, apperr.Upstream(err, "Failed to load dashboard summary")
	}
	return AdminSummary{
		TotalActiveRiders:       active,
		TotalNotAssignedParcels: st.PaidNotCollected,
		TotalDelivered:          st.Delivered,
	}, nil
}

// inLifecycleOrder lists per-status counts in lifecycle order, skipping
// not_collected and statuses without parcels.
func inLifecycleOrder(counts map[models.DeliveryStatus]int64) []StatusCount {
	out := []StatusCount{}
	for _, st := range models.DeliveryLifecycle {
		if st == models.DeliveryNotCollected {
			continue
		}
		if n := counts[st]; n > 0 {
			out = append(out, StatusCount{Status: st, Count: n})
		}
	}
	return out
}
