package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/ParcelBox/config"
	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/services/reconciler"
	"github.com/BearBump/ParcelBox/internal/storage/memstore"
	"github.com/stretchr/testify/require"
)

type fakeConsumer struct {
	mu     sync.Mutex
	msgs   [][]byte
	calls  int
	closed bool
}

func (c *fakeConsumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	c.mu.Lock()
	c.calls++
	msgs := c.msgs
	c.msgs = nil
	c.mu.Unlock()
	for _, m := range msgs {
		if err := handler(nil, m); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (c *fakeConsumer) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func TestRunParcelWorker_ContextCanceled(t *testing.T) {
	calledClose := false
	consumer := &fakeConsumer{}

	f := workerFactories{
		newStorage: func(cfg *config.Config) (reconciler.Repository, func(), error) {
			return memstore.New(), func() { calledClose = true }, nil
		},
		newConsumer: func(cfg *config.Config) eventConsumer { return consumer },
	}
	cfg := &config.Config{ParcelBox: config.ParcelBoxConfig{WorkerPollIntervalSeconds: 1}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunParcelWorker(ctx, cfg, f, "")
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, calledClose)
	require.True(t, consumer.closed)
}

func TestRunParcelWorker_StorageError(t *testing.T) {
	f := workerFactories{
		newStorage: func(cfg *config.Config) (reconciler.Repository, func(), error) {
			return nil, nil, errors.New("db down")
		},
	}
	err := RunParcelWorker(context.Background(), &config.Config{}, f, "")
	require.EqualError(t, err, "db down")
}

func TestConsumeRiderApproved_ElevatesRole(t *testing.T) {
	st := memstore.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := st.UpsertUser(ctx, "rob@example.com", nil)
	require.NoError(t, err)

	b, err := json.Marshal(messages.RiderApproved{RiderID: "r1", Email: "rob@example.com", ApprovedAt: time.Now()})
	require.NoError(t, err)
	consumer := &fakeConsumer{msgs: [][]byte{b, []byte("not json")}}

	done := make(chan struct{})
	go func() {
		consumeRiderApproved(ctx, consumer, reconciler.New(st))
		close(done)
	}()

	require.Eventually(t, func() bool {
		u, err := st.GetUserByEmail(ctx, "rob@example.com")
		return err == nil && u.Role == models.RoleRider
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer loop did not stop")
	}
}

func TestWorkerHTTPServer(t *testing.T) {
	rec := reconciler.New(memstore.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	readyErr := errors.New("db down")
	var failReady bool
	var mu sync.Mutex
	go func() {
		errCh <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr:   "127.0.0.1:0",
			onListen:   func(addr string) { addrCh <- addr },
			reconciler: rec,
			ready: func(context.Context) error {
				mu.Lock()
				defer mu.Unlock()
				if failReady {
					return readyErr
				}
				return nil
			},
			cfg: &config.Config{ParcelBox: config.ParcelBoxConfig{WorkerBatchSize: 50}},
		})
	}()
	base := "http://" + <-addrCh

	get := func(path string) *http.Response {
		resp, err := http.Get(base + path)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	require.Equal(t, http.StatusOK, get("/healthz").StatusCode)
	require.Equal(t, http.StatusOK, get("/readyz").StatusCode)

	mu.Lock()
	failReady = true
	mu.Unlock()
	require.Equal(t, http.StatusServiceUnavailable, get("/readyz").StatusCode)

	resp, err := http.Post(base+"/trigger", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats reconciler.Stats
	require.NoError(t, json.NewDecoder(get("/stats").Body).Decode(&stats))
	require.NotNil(t, stats.LastTriggerAt)

	var cfg map[string]any
	require.NoError(t, json.NewDecoder(get("/config").Body).Decode(&cfg))
	require.EqualValues(t, 50, cfg["batchSize"])

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting worker http to stop")
	}
}
