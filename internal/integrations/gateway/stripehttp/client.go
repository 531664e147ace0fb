package stripehttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/integrations/gateway"
	"github.com/pkg/errors"
)

// Client talks to a Stripe-compatible payment_intents endpoint.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type respBody struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type errBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (gateway.Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)
	form.Add("payment_method_types[]", "card")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return gateway.Intent{}, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return gateway.Intent{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var eb errBody
		if json.NewDecoder(resp.Body).Decode(&eb) == nil && eb.Error.Message != "" {
			return gateway.Intent{}, fmt.Errorf("payment gateway http %d: %s", resp.StatusCode, eb.Error.Message)
		}
		return gateway.Intent{}, fmt.Errorf("payment gateway http %d", resp.StatusCode)
	}

	var rb respBody
	if err := json.NewDecoder(resp.Body).Decode(&rb); err != nil {
		return gateway.Intent{}, errors.Wrap(err, "decode")
	}
	if rb.ClientSecret == "" {
		return gateway.Intent{}, errors.New("payment gateway returned no client_secret")
	}
	return gateway.Intent{
		ID:           rb.ID,
		ClientSecret: rb.ClientSecret,
		Amount:       rb.Amount,
		Currency:     rb.Currency,
	}, nil
}
