package models

import "time"

type DeliveryStatus string

const (
	DeliveryNotCollected DeliveryStatus = "not_collected"
	DeliveryAssigned     DeliveryStatus = "assigned"
	DeliveryTransit      DeliveryStatus = "transit"
	DeliveryDelivered    DeliveryStatus = "delivered"
)

// DeliveryLifecycle lists delivery statuses in the only order a parcel may
// move through them.
var DeliveryLifecycle = []DeliveryStatus{
	DeliveryNotCollected,
	DeliveryAssigned,
	DeliveryTransit,
	DeliveryDelivered,
}

func (s DeliveryStatus) Valid() bool {
	return s.rank() >= 0
}

func (s DeliveryStatus) rank() int {
	for i, v := range DeliveryLifecycle {
		if v == s {
			return i
		}
	}
	return -1
}

// RequiresRider reports whether a parcel in this status must carry an
// assigned rider snapshot.
func (s DeliveryStatus) RequiresRider() bool {
	return s == DeliveryAssigned || s == DeliveryTransit || s == DeliveryDelivered
}

// Next returns the status that directly follows s, or false at the end of the
// lifecycle.
func (s DeliveryStatus) Next() (DeliveryStatus, bool) {
	r := s.rank()
	if r < 0 || r+1 >= len(DeliveryLifecycle) {
		return "", false
	}
	return DeliveryLifecycle[r+1], true
}

// Assignable reports whether a rider may be (re)assigned to a parcel in s.
func (s DeliveryStatus) Assignable() bool {
	return s == DeliveryNotCollected || s == DeliveryAssigned
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentUnpaid || s == PaymentPaid
}

// RiderSnapshot is a point-in-time copy of the rider taken at assignment.
// Later edits to the rider never reach parcels already carrying it.
type RiderSnapshot struct {
	RiderID string `json:"riderId"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
	Region  string `json:"region"`
}

// ParcelDetails are the shipment fields the marketplace stores verbatim.
type ParcelDetails struct {
	Title               string  `json:"title,omitempty"`
	Type                string  `json:"type,omitempty"`
	Weight              float64 `json:"weight,omitempty"`
	SenderName          string  `json:"sender_name,omitempty"`
	SenderContact       string  `json:"sender_contact,omitempty"`
	SenderRegion        string  `json:"sender_region,omitempty"`
	SenderCenter        string  `json:"sender_center,omitempty"`
	SenderAddress       string  `json:"sender_address,omitempty"`
	PickupInstruction   string  `json:"pickup_instruction,omitempty"`
	ReceiverName        string  `json:"receiver_name,omitempty"`
	ReceiverContact     string  `json:"receiver_contact,omitempty"`
	ReceiverRegion      string  `json:"receiver_region,omitempty"`
	ReceiverCenter      string  `json:"receiver_center,omitempty"`
	ReceiverAddress     string  `json:"receiver_address,omitempty"`
	DeliveryInstruction string  `json:"delivery_instruction,omitempty"`
}

func (d ParcelDetails) IsZero() bool {
	return d == ParcelDetails{}
}

type Parcel struct {
	ID             string         `json:"id"`
	TrackingID     string         `json:"tracking_id"`
	CreatedBy      string         `json:"created_by"`
	Cost           float64        `json:"cost"`
	PaymentStatus  PaymentStatus  `json:"payment_status"`
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	AssignedRider  *RiderSnapshot `json:"assigned_rider"`
	Details        ParcelDetails  `json:"details"`
	CreationDate   time.Time      `json:"creation_date"`
	UpdatedAt      *time.Time     `json:"updated_at,omitempty"`
}

// ParcelCreateInput is what a user submits; lifecycle fields are optional
// overrides and the rider snapshot is never accepted from callers.
type ParcelCreateInput struct {
	TrackingID     string
	CreatedBy      string
	Cost           float64
	PaymentStatus  PaymentStatus
	DeliveryStatus DeliveryStatus
	Details        ParcelDetails
}

func (in ParcelCreateInput) IsEmpty() bool {
	return in.TrackingID == "" && in.CreatedBy == "" && in.Cost == 0 &&
		in.PaymentStatus == "" && in.DeliveryStatus == "" && in.Details.IsZero()
}

type ParcelOrder int

const (
	OrderByCreationDesc ParcelOrder = iota
	OrderByUpdatedDesc
)

// ParcelFilter narrows parcel listings; empty fields do not filter.
type ParcelFilter struct {
	CreatedBy        string
	PaymentStatus    PaymentStatus
	DeliveryStatuses []DeliveryStatus
	RiderEmail       string
	OrderBy          ParcelOrder
}

// ParcelStats are store-side counters over the parcels matching a filter.
type ParcelStats struct {
	Total            int64
	Unpaid           int64
	Delivered        int64
	PaidNotCollected int64
	PaidCost         float64
}
