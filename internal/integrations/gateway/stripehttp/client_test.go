package stripehttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_CreatePaymentIntent_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "1250", r.PostForm.Get("amount"))
		require.Equal(t, "usd", r.PostForm.Get("currency"))
		require.Equal(t, []string{"card"}, r.PostForm["payment_method_types[]"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_1","client_secret":"pi_1_secret_x","amount":1250,"currency":"usd"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "sk_test")
	in, err := c.CreatePaymentIntent(context.Background(), 1250, "usd")
	require.NoError(t, err)
	require.Equal(t, "pi_1", in.ID)
	require.Equal(t, "pi_1_secret_x", in.ClientSecret)
	require.EqualValues(t, 1250, in.Amount)
}

func TestClient_CreatePaymentIntent_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","message":"Amount must be at least 50 cents"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "sk_test")
	_, err := c.CreatePaymentIntent(context.Background(), 1, "usd")
	require.Error(t, err)
	require.Contains(t, err.Error(), "402")
	require.Contains(t, err.Error(), "at least 50 cents")
}

func TestClient_CreatePaymentIntent_MissingSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"pi_2"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").CreatePaymentIntent(context.Background(), 100, "usd")
	require.Error(t, err)
}

func TestNew_DefaultBaseURL(t *testing.T) {
	c := New("", "k")
	require.Equal(t, "https://api.stripe.com", c.baseURL)
}
