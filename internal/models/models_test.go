package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeliveryStatus_Lifecycle(t *testing.T) {
	next, ok := DeliveryNotCollected.Next()
	require.True(t, ok)
	require.Equal(t, DeliveryAssigned, next)

	next, ok = DeliveryAssigned.Next()
	require.True(t, ok)
	require.Equal(t, DeliveryTransit, next)

	next, ok = DeliveryTransit.Next()
	require.True(t, ok)
	require.Equal(t, DeliveryDelivered, next)

	_, ok = DeliveryDelivered.Next()
	require.False(t, ok)

	_, ok = DeliveryStatus("lost").Next()
	require.False(t, ok)
}

func TestDeliveryStatus_RiderInvariant(t *testing.T) {
	require.False(t, DeliveryNotCollected.RequiresRider())
	require.True(t, DeliveryAssigned.RequiresRider())
	require.True(t, DeliveryTransit.RequiresRider())
	require.True(t, DeliveryDelivered.RequiresRider())
}

func TestDeliveryStatus_Valid(t *testing.T) {
	for _, s := range DeliveryLifecycle {
		require.True(t, s.Valid(), s)
	}
	require.False(t, DeliveryStatus("").Valid())
	require.False(t, DeliveryStatus("DELIVERED").Valid())
}

func TestDeliveryStatus_Assignable(t *testing.T) {
	require.True(t, DeliveryNotCollected.Assignable())
	require.True(t, DeliveryAssigned.Assignable())
	require.False(t, DeliveryTransit.Assignable())
	require.False(t, DeliveryDelivered.Assignable())
}

func TestRiderStatus_Workflow(t *testing.T) {
	require.True(t, RiderPending.CanMoveTo(RiderApproved))
	require.True(t, RiderPending.CanMoveTo(RiderRejected))
	require.False(t, RiderPending.CanMoveTo(RiderDeactivated))

	require.True(t, RiderApproved.CanMoveTo(RiderDeactivated))
	require.False(t, RiderApproved.CanMoveTo(RiderRejected))

	for _, s := range []RiderStatus{RiderRejected, RiderDeactivated} {
		for _, n := range []RiderStatus{RiderPending, RiderApproved, RiderRejected, RiderDeactivated} {
			require.False(t, s.CanMoveTo(n), "%s -> %s", s, n)
		}
	}
}

func TestRider_SnapshotIsCopy(t *testing.T) {
	r := &Rider{ID: "r1", Name: "Rahim", Email: "rahim@example.com", Contact: "017", Region: "Dhaka"}
	snap := r.Snapshot()
	r.Name = "Renamed"
	require.Equal(t, "Rahim", snap.Name)
	require.Equal(t, RiderSnapshot{RiderID: "r1", Name: "Rahim", Email: "rahim@example.com", Contact: "017", Region: "Dhaka"}, snap)
}

func TestRole(t *testing.T) {
	require.True(t, RoleRider.Valid())
	require.False(t, Role("root").Valid())
	require.True(t, RoleAdmin.Assignable())
	require.True(t, RoleUser.Assignable())
	require.False(t, RoleRider.Assignable())
}

func TestParcelCreateInput_IsEmpty(t *testing.T) {
	require.True(t, ParcelCreateInput{}.IsEmpty())
	require.False(t, ParcelCreateInput{Cost: 10}.IsEmpty())
	require.False(t, ParcelCreateInput{Details: ParcelDetails{Title: "Docs"}}.IsEmpty())
}
