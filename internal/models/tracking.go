package models

import "time"

// TrackingEvent is one write-once entry of a parcel's history.
type TrackingEvent struct {
	ID         string    `json:"id"`
	ParcelID   string    `json:"parcel_id"`
	TrackingID string    `json:"tracking_id"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	UpdatedBy  string    `json:"update_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type TrackingEventInput struct {
	ParcelID   string
	TrackingID string
	Status     string
	Message    string
	UpdatedBy  string
}
