package models

import "time"

const PaymentRecordSuccess = "success"

type Payment struct {
	ID            string    `json:"id"`
	ParcelID      string    `json:"parcelId"`
	Email         string    `json:"email"`
	Amount        float64   `json:"amount"`
	TransactionID string    `json:"transactionId"`
	Method        string    `json:"paymentMethod"`
	Status        string    `json:"status"`
	PaidAt        time.Time `json:"paid_at"`
}

type PaymentInput struct {
	ParcelID      string
	Email         string
	Amount        float64
	TransactionID string
	Method        string
}
