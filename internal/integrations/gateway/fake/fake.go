package fake

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync/atomic"

	"github.com/BearBump/ParcelBox/internal/integrations/gateway"
)

// Client is a local stand-in for the payment gateway. Secrets are derived
// from the amount and a counter so every call yields a distinct intent.
type Client struct {
	seq atomic.Int64
}

func New() *Client { return &Client{} }

func (c *Client) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (gateway.Intent, error) {
	n := c.seq.Add(1)

	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%d|%s|%d", amount, currency, n)
	id := fmt.Sprintf("pi_fake_%08x", h.Sum32())

	return gateway.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Amount:       amount,
		Currency:     currency,
	}, nil
}
