package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	dispatchmocks "github.com/BearBump/ParcelBox/internal/services/dispatch/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAssignRider_ParcelVanishedBetweenReadAndWrite(t *testing.T) {
	repo := dispatchmocks.NewMockRepository(t)
	eng := New(repo, nil, nil, "")

	rider := &models.Rider{ID: "r1", Email: "rob@example.com", Status: models.RiderApproved}
	repo.On("GetRider", mock.Anything, "r1").Return(rider, nil).Once()
	repo.On("GetParcel", mock.Anything, "p1").
		Return(&models.Parcel{ID: "p1", DeliveryStatus: models.DeliveryNotCollected}, nil).Once()
	repo.On("AssignRider", mock.Anything, "p1", rider.Snapshot(), mock.Anything).Return(false, nil).Once()
	repo.On("GetParcel", mock.Anything, "p1").Return(nil, apperr.NotFound("Parcel not found")).Once()

	_, err := eng.AssignRider(context.Background(), "p1", "r1", admin)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAssignRider_StoreFailureIsUpstream(t *testing.T) {
	repo := dispatchmocks.NewMockRepository(t)
	eng := New(repo, nil, nil, "")

	repo.On("GetRider", mock.Anything, "r1").Return(nil, errors.New("connection reset")).Once()

	_, err := eng.AssignRider(context.Background(), "p1", "r1", admin)
	require.ErrorIs(t, err, apperr.ErrUpstream)
	require.Equal(t, 500, apperr.HTTPStatus(err))
}

func TestUpdateDeliveryStatus_LostRace(t *testing.T) {
	repo := dispatchmocks.NewMockRepository(t)
	eng := New(repo, nil, nil, "")

	snap := &models.RiderSnapshot{RiderID: "r1", Email: "rob@example.com"}
	repo.On("GetParcel", mock.Anything, "p1").
		Return(&models.Parcel{ID: "p1", DeliveryStatus: models.DeliveryAssigned, AssignedRider: snap}, nil).Once()
	repo.On("AdvanceDeliveryStatus", mock.Anything, "p1", models.DeliveryAssigned, models.DeliveryTransit, mock.Anything).
		Return(false, nil).Once()
	repo.On("GetParcel", mock.Anything, "p1").
		Return(&models.Parcel{ID: "p1", DeliveryStatus: models.DeliveryTransit, AssignedRider: snap}, nil).Once()

	_, err := eng.UpdateDeliveryStatus(context.Background(), "p1", models.DeliveryTransit, admin)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}
