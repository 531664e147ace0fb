package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ParcelBox/config"
	"github.com/BearBump/ParcelBox/internal/api/parcelapi"
	"github.com/BearBump/ParcelBox/internal/broker/kafka"
	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/cache"
	"github.com/BearBump/ParcelBox/internal/cache/rediscache"
	"github.com/BearBump/ParcelBox/internal/integrations/gateway"
	"github.com/BearBump/ParcelBox/internal/integrations/gateway/fake"
	"github.com/BearBump/ParcelBox/internal/integrations/gateway/stripehttp"
	"github.com/BearBump/ParcelBox/internal/services/dashboard"
	"github.com/BearBump/ParcelBox/internal/services/dispatch"
	"github.com/BearBump/ParcelBox/internal/services/identity"
	"github.com/BearBump/ParcelBox/internal/services/parcels"
	"github.com/BearBump/ParcelBox/internal/services/payments"
	"github.com/BearBump/ParcelBox/internal/services/riders"
	"github.com/BearBump/ParcelBox/internal/services/tracking"
	"github.com/BearBump/ParcelBox/internal/services/users"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcel"
)

const defaultStripeBaseURL = "https://api.stripe.com"

// store is everything the API needs from persistence; pgparcel.Storage and
// memstore.Store both satisfy it.
type store interface {
	users.Repository
	parcels.Repository
	riders.Repository
	riders.RoleGranter
	dispatch.Repository
	payments.Repository
	tracking.Repository
	dashboard.Repository
	identity.UserReader
}

// apiDeps are the infrastructure pieces buildAPI wires; cache, limiter and
// producer may be nil.
type apiDeps struct {
	store    store
	cache    cache.BytesCache
	limiter  parcelapi.RateLimiter
	producer messages.Producer
	gateway  gateway.Client
}

type parcelAPIApp struct {
	ctx     context.Context
	cancel  context.CancelFunc
	opts    parcelAPIOpts
	handler http.Handler
	closers []func()
}

func mustBootstrapParcelAPI() *parcelAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}

	st := mustOpenPostgresWithRetry(cfg.Database.DSN(), 60*time.Second)
	rc := rediscache.New(cfg.Redis.Addr())
	producer := kafka.NewProducer(cfg.Kafka.Brokers())

	handler, err := buildAPI(cfg, apiDeps{
		store:    st,
		cache:    rc,
		limiter:  rc.RateLimiter(),
		producer: producer,
		gateway:  newGatewayClient(cfg.Gateway),
	}, os.Getenv("swaggerPath"))
	if err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &parcelAPIApp{
		ctx:     ctx,
		cancel:  cancel,
		opts:    parcelAPIOpts{httpAddr: cfg.ParcelBox.HTTPAddr},
		handler: handler,
		closers: []func(){
			func() { _ = producer.Close() },
			func() { _ = rc.Close() },
			st.Close,
		},
	}
}

// buildAPI wires the services over deps and returns the HTTP handler.
func buildAPI(cfg *config.Config, deps apiDeps, swaggerPath string) (http.Handler, error) {
	verifier, err := identity.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.Audience)
	if err != nil {
		return nil, err
	}

	statusTopic := cfg.Kafka.ParcelStatusTopicName
	if statusTopic == "" {
		statusTopic = "parcel.status_changed"
	}
	paymentTopic := cfg.Kafka.PaymentRecordedTopicName
	if paymentTopic == "" {
		paymentTopic = "payment.recorded"
	}
	approvedTopic := cfg.Kafka.RiderApprovedTopicName
	if approvedTopic == "" {
		approvedTopic = "rider.approved"
	}
	currency := cfg.Gateway.Currency
	if currency == "" {
		currency = "usd"
	}
	intentTTL := time.Duration(cfg.ParcelBox.IntentIdempotencyTTLSeconds) * time.Second
	if intentTTL <= 0 {
		intentTTL = 24 * time.Hour
	}
	intentLimit := int64(cfg.ParcelBox.IntentRateLimitPerMinute)
	if intentLimit <= 0 {
		intentLimit = 10
	}

	ledger := tracking.New(deps.store)
	reconciler := payments.New(deps.store, deps.gateway, currency, deps.producer, paymentTopic)
	if deps.cache != nil {
		reconciler = reconciler.WithIdempotencyCache(deps.cache, intentTTL)
	}

	api := parcelapi.New(identity.NewGate(verifier, deps.store), parcelapi.Services{
		Users:     users.New(deps.store),
		Parcels:   parcels.New(deps.store),
		Riders:    riders.New(deps.store, deps.store, deps.producer, approvedTopic),
		Dispatch:  dispatch.New(deps.store, ledger, deps.producer, statusTopic),
		Payments:  reconciler,
		Tracking:  ledger,
		Dashboard: dashboard.New(deps.store),
	}, parcelapi.Options{
		SwaggerPath:              swaggerPath,
		RateLimiter:              deps.limiter,
		IntentRateLimitPerMinute: intentLimit,
	})
	return api.Router(), nil
}

// newGatewayClient picks the Stripe REST client in stripe mode and the local
// fake otherwise.
func newGatewayClient(cfg config.GatewayConfig) gateway.Client {
	if cfg.Mode == "stripe" {
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultStripeBaseURL
		}
		return stripehttp.New(baseURL, cfg.APIKey)
	}
	return fake.New()
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgparcel.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgparcel.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *parcelAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for _, c := range a.closers {
		c()
	}
}

func (a *parcelAPIApp) Run() error {
	return runParcelAPI(a.ctx, a.opts, a.handler)
}
