package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/storage/memstore"
	"github.com/stretchr/testify/require"
)

func seedApproved(t *testing.T, st *memstore.Store, email string) {
	t.Helper()
	ctx := context.Background()
	_, err := st.UpsertUser(ctx, email, nil)
	require.NoError(t, err)
	r := &models.Rider{Email: email, Name: "R", Status: models.RiderPending}
	require.NoError(t, st.CreateRider(ctx, r))
	_, err = st.SetRiderStatus(ctx, r.ID, models.RiderPending, models.RiderApproved, time.Now())
	require.NoError(t, err)
}

func TestReconciler_runOnce_ElevatesStragglers(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seedApproved(t, st, "a@example.com")
	seedApproved(t, st, "b@example.com")
	seedApproved(t, st, "c@example.com")

	rc := New(st).WithSettings(time.Second, 10, 2)
	rc.runOnce(ctx)

	for _, e := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		u, err := st.GetUserByEmail(ctx, e)
		require.NoError(t, err)
		require.Equal(t, models.RoleRider, u.Role)
	}
	stats := rc.Stats()
	require.EqualValues(t, 3, stats.TotalScanned)
	require.EqualValues(t, 3, stats.TotalElevated)
	require.EqualValues(t, 0, stats.InFlight)
	require.NotNil(t, stats.LastCycleAt)

	// converged: nothing left to do
	rc.runOnce(ctx)
	require.EqualValues(t, 3, rc.Stats().TotalElevated)
}

type failingRepo struct {
	*memstore.Store
	mu    sync.Mutex
	calls int
}

func (r *failingRepo) PromoteToRider(context.Context, string, time.Time) (bool, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return false, errors.New("db down")
}

func TestReconciler_runOnce_RecordsErrors(t *testing.T) {
	st := memstore.New()
	seedApproved(t, st, "a@example.com")
	repo := &failingRepo{Store: st}

	rc := New(repo)
	rc.runOnce(context.Background())

	stats := rc.Stats()
	require.EqualValues(t, 1, stats.TotalErrors)
	require.Contains(t, stats.LastError, "db down")
	require.Equal(t, 1, repo.calls)
}

func TestReconciler_HandleRiderApproved(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	_, _ = st.UpsertUser(ctx, "rob@example.com", nil)
	_, _ = st.UpsertUser(ctx, "boss@example.com", nil)
	boss, _ := st.GetUserByEmail(ctx, "boss@example.com")
	_, _ = st.SetUserRole(ctx, boss.ID, models.RoleAdmin)

	rc := New(st)
	now := time.Now().UTC()
	b, _ := json.Marshal(messages.RiderApproved{RiderID: "r1", Email: "rob@example.com", ApprovedAt: now})
	require.NoError(t, rc.HandleRiderApproved(ctx, []byte("r1"), b))
	u, _ := st.GetUserByEmail(ctx, "rob@example.com")
	require.Equal(t, models.RoleRider, u.Role)

	// admins are never demoted
	b, _ = json.Marshal(messages.RiderApproved{RiderID: "r2", Email: "boss@example.com", ApprovedAt: now.Add(time.Hour)})
	require.NoError(t, rc.HandleRiderApproved(ctx, []byte("r2"), b))
	u, _ = st.GetUserByEmail(ctx, "boss@example.com")
	require.Equal(t, models.RoleAdmin, u.Role)

	// poison, undated and orphan messages are skipped
	require.NoError(t, rc.HandleRiderApproved(ctx, []byte("x"), []byte("{")))
	b, _ = json.Marshal(messages.RiderApproved{RiderID: "r3", Email: "ghost@example.com", ApprovedAt: now})
	require.NoError(t, rc.HandleRiderApproved(ctx, []byte("r3"), b))
	b, _ = json.Marshal(messages.RiderApproved{RiderID: "r4", Email: "rob@example.com"})
	require.NoError(t, rc.HandleRiderApproved(ctx, []byte("r4"), b))

	require.EqualValues(t, 5, rc.Stats().TotalEvents)
	require.EqualValues(t, 1, rc.Stats().TotalElevated)
}

func TestReconciler_HandleRiderApproved_StoreErrorRedelivers(t *testing.T) {
	st := memstore.New()
	_, _ = st.UpsertUser(context.Background(), "rob@example.com", nil)
	rc := New(&failingRepo{Store: st})

	b, _ := json.Marshal(messages.RiderApproved{RiderID: "r1", Email: "rob@example.com", ApprovedAt: time.Now()})
	require.Error(t, rc.HandleRiderApproved(context.Background(), []byte("r1"), b))
}

func TestReconciler_DemotionAfterApprovalSticks(t *testing.T) {
	ctx := context.Background()
	approvedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	st := memstore.New().WithClock(func() time.Time { return approvedAt.Add(time.Hour) })

	_, err := st.UpsertUser(ctx, "rob@example.com", nil)
	require.NoError(t, err)
	r := &models.Rider{Email: "rob@example.com", Name: "R", Status: models.RiderPending}
	require.NoError(t, st.CreateRider(ctx, r))
	_, err = st.SetRiderStatus(ctx, r.ID, models.RiderPending, models.RiderApproved, approvedAt)
	require.NoError(t, err)

	rc := New(st)
	rc.runOnce(ctx)
	u, _ := st.GetUserByEmail(ctx, "rob@example.com")
	require.Equal(t, models.RoleRider, u.Role)

	// admin demotes after the approval; neither the sweep nor a replayed
	// event may undo it
	_, err = st.SetUserRole(ctx, u.ID, models.RoleUser)
	require.NoError(t, err)
	rc.runOnce(ctx)
	b, _ := json.Marshal(messages.RiderApproved{RiderID: r.ID, Email: "rob@example.com", ApprovedAt: approvedAt})
	require.NoError(t, rc.HandleRiderApproved(ctx, []byte(r.ID), b))

	u, _ = st.GetUserByEmail(ctx, "rob@example.com")
	require.Equal(t, models.RoleUser, u.Role)
	require.EqualValues(t, 1, rc.Stats().TotalElevated)
}

func TestReconciler_Run_TriggerAndCancel(t *testing.T) {
	st := memstore.New()
	seedApproved(t, st, "a@example.com")
	rc := New(st).WithSettings(time.Hour, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rc.Run(ctx) }()

	rc.Trigger()
	require.Eventually(t, func() bool { return rc.Stats().TotalElevated == 1 }, time.Second, 5*time.Millisecond)
	require.NotNil(t, rc.Stats().LastTriggerAt)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestReconciler_WithSettings(t *testing.T) {
	rc := New(nil).WithSettings(5*time.Second, 7, 9)
	require.Equal(t, 5*time.Second, rc.pollInterval)
	require.Equal(t, 7, rc.batchSize)
	require.Equal(t, 9, rc.concurrency)

	rc = New(nil).WithSettings(0, 0, 0)
	require.Equal(t, 30*time.Second, rc.pollInterval)
}
