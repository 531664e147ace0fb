package models

import "time"

type RiderStatus string

const (
	RiderPending     RiderStatus = "pending"
	RiderApproved    RiderStatus = "approved"
	RiderRejected    RiderStatus = "rejected"
	RiderDeactivated RiderStatus = "deactivated"
)

func (s RiderStatus) Valid() bool {
	switch s {
	case RiderPending, RiderApproved, RiderRejected, RiderDeactivated:
		return true
	}
	return false
}

// CanMoveTo encodes the approval workflow:
// pending -> approved|rejected, approved -> deactivated.
func (s RiderStatus) CanMoveTo(next RiderStatus) bool {
	switch s {
	case RiderPending:
		return next == RiderApproved || next == RiderRejected
	case RiderApproved:
		return next == RiderDeactivated
	default:
		return false
	}
}

type Rider struct {
	ID               string      `json:"id"`
	Email            string      `json:"email"`
	Name             string      `json:"name"`
	Contact          string      `json:"contact"`
	Region           string      `json:"region"`
	District         string      `json:"district,omitempty"`
	Age              int         `json:"age,omitempty"`
	NID              string      `json:"nid,omitempty"`
	BikeBrand        string      `json:"bike_brand,omitempty"`
	BikeRegistration string      `json:"bike_registration,omitempty"`
	Status           RiderStatus `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        *time.Time  `json:"updated_at,omitempty"`
}

// Snapshot copies the identity fields stored on an assigned parcel.
func (r *Rider) Snapshot() RiderSnapshot {
	return RiderSnapshot{
		RiderID: r.ID,
		Name:    r.Name,
		Email:   r.Email,
		Contact: r.Contact,
		Region:  r.Region,
	}
}

type RiderFilter struct {
	Status RiderStatus
	// Name matches case-insensitively anywhere in the rider name.
	Name string
}
