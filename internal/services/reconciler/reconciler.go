package reconciler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/pkg/errors"
)

type Repository interface {
	ListRidersAwaitingRole(ctx context.Context, limit int) ([]*models.Rider, error)
	PromoteToRider(ctx context.Context, email string, approvedAt time.Time) (bool, error)
}

// Reconciler converges rider approval and role elevation, which are written
// separately. It sweeps approved riders whose user still has the user role
// and also reacts to rider.approved events.
type Reconciler struct {
	repo Repository

	pollInterval time.Duration
	batchSize    int
	concurrency  int

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalScanned        atomic.Int64
	totalElevated       atomic.Int64
	totalEvents         atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository) *Reconciler {
	return &Reconciler{
		repo:              repo,
		pollInterval:      30 * time.Second,
		batchSize:         100,
		concurrency:       4,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (r *Reconciler) WithSettings(pollInterval time.Duration, batchSize, concurrency int) *Reconciler {
	if pollInterval > 0 {
		r.pollInterval = pollInterval
	}
	if batchSize > 0 {
		r.batchSize = batchSize
	}
	if concurrency > 0 {
		r.concurrency = concurrency
	}
	return r
}

// Trigger forces an immediate sweep (best-effort, non-blocking).
func (r *Reconciler) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastCycleAt   *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt *time.Time `json:"lastTriggerAt,omitempty"`
	TotalScanned  int64      `json:"totalScanned"`
	TotalElevated int64      `json:"totalElevated"`
	TotalEvents   int64      `json:"totalEvents"`
	TotalErrors   int64      `json:"totalErrors"`
	InFlight      int64      `json:"inFlight"`
	LastError     string     `json:"lastError,omitempty"`
}

func (r *Reconciler) Stats() Stats {
	st := Stats{
		StartedAt:     time.Unix(0, r.startedAtUnixNano).UTC(),
		TotalScanned:  r.totalScanned.Load(),
		TotalElevated: r.totalElevated.Load(),
		TotalEvents:   r.totalEvents.Load(),
		TotalErrors:   r.totalErrors.Load(),
		InFlight:      r.inFlight.Load(),
	}
	if n := r.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}

func (r *Reconciler) Run(ctx context.Context) error {
	t := time.NewTicker(r.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.runOnce(ctx)
		case <-r.triggerCh:
			r.runOnce(ctx)
		}
	}
}

func (r *Reconciler) runOnce(ctx context.Context) {
	r.lastCycleUnixNano.Store(time.Now().UTC().UnixNano())

	riders, err := r.repo.ListRidersAwaitingRole(ctx, r.batchSize)
	if err != nil {
		slog.Error("list riders awaiting role", "error", err.Error())
		r.setLastError(err)
		return
	}
	r.totalScanned.Add(int64(len(riders)))

	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
	for _, rd := range riders {
		sem <- struct{}{}
		wg.Add(1)
		r.inFlight.Add(1)
		go func(rd *models.Rider) {
			defer func() {
				r.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := r.elevate(ctx, rd.Email, approvedAt(rd)); err != nil {
				r.totalErrors.Add(1)
				r.setLastError(err)
				slog.Error("elevate rider role", "rider_id", rd.ID, "email", rd.Email, "error", err.Error())
			}
		}(rd)
	}
	wg.Wait()
}

func approvedAt(rd *models.Rider) time.Time {
	if rd.UpdatedAt != nil {
		return *rd.UpdatedAt
	}
	return rd.CreatedAt
}

// HandleRiderApproved is the rider.approved consumer callback. Malformed
// messages and unknown users are skipped so they do not block the partition.
func (r *Reconciler) HandleRiderApproved(ctx context.Context, key, value []byte) error {
	r.totalEvents.Add(1)

	var msg messages.RiderApproved
	if err := json.Unmarshal(value, &msg); err != nil {
		slog.Warn("skip malformed rider.approved", "key", string(key), "error", err.Error())
		return nil
	}
	if msg.Email == "" || msg.ApprovedAt.IsZero() {
		slog.Warn("skip incomplete rider.approved", "rider_id", msg.RiderID)
		return nil
	}
	if err := r.elevate(ctx, msg.Email, msg.ApprovedAt); err != nil {
		r.totalErrors.Add(1)
		r.setLastError(err)
		return err
	}
	return nil
}

// elevate promotes plain users whose role was not changed after the
// approval, so admins are never demoted, an admin's later demotion sticks and
// repeated calls are no-ops.
func (r *Reconciler) elevate(ctx context.Context, email string, approvedAt time.Time) error {
	ok, err := r.repo.PromoteToRider(ctx, email, approvedAt)
	if err != nil {
		return errors.Wrap(err, "promote to rider")
	}
	if ok {
		r.totalElevated.Add(1)
		slog.Info("rider role elevated", "email", email)
	}
	return nil
}

func (r *Reconciler) setLastError(err error) {
	r.lastErrorMu.Lock()
	r.lastError = err.Error()
	r.lastErrorMu.Unlock()
}
