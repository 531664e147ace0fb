package messages

import "time"

// ParcelStatusChanged is published after every delivery status transition,
// including rider assignment and admin overrides.
type ParcelStatusChanged struct {
	ParcelID   string    `json:"parcel_id"`
	TrackingID string    `json:"tracking_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	RiderEmail string    `json:"rider_email,omitempty"`
	UpdatedBy  string    `json:"updated_by"`
	Override   bool      `json:"override,omitempty"`
	ChangedAt  time.Time `json:"changed_at"`
}

type PaymentRecorded struct {
	PaymentID     string    `json:"payment_id"`
	ParcelID      string    `json:"parcel_id"`
	Email         string    `json:"email"`
	Amount        float64   `json:"amount"`
	TransactionID string    `json:"transaction_id"`
	PaidAt        time.Time `json:"paid_at"`
}

// RiderApproved asks the worker to make sure the rider's user carries the
// rider role.
type RiderApproved struct {
	RiderID    string    `json:"rider_id"`
	Email      string    `json:"email"`
	ApprovedAt time.Time `json:"approved_at"`
}
