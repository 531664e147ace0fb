package gateway

import "context"

// Intent is a payment intent the client confirms on its side with the
// secret. Amounts are in the smallest currency unit.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

type Client interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string) (Intent, error)
}
