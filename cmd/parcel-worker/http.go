package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/ParcelBox/config"
	"github.com/BearBump/ParcelBox/internal/services/reconciler"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

type workerHTTPOpts struct {
	httpAddr    string
	swaggerPath string
	onListen    func(httpAddr string)

	reconciler *reconciler.Reconciler
	ready      func(ctx context.Context) error
	cfg        *config.Config
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.ready != nil {
			pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := opts.ready(pingCtx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.reconciler == nil {
			_, _ = w.Write([]byte(`{"error":"reconciler not wired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(opts.reconciler.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.cfg == nil {
			_, _ = w.Write([]byte(`{"error":"config not wired"}`))
			return
		}
		// operational settings only, no secrets
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pollIntervalSeconds": opts.cfg.ParcelBox.WorkerPollIntervalSeconds,
			"batchSize":           opts.cfg.ParcelBox.WorkerBatchSize,
			"concurrency":         opts.cfg.ParcelBox.WorkerConcurrency,
			"riderApprovedTopic":  opts.cfg.Kafka.RiderApprovedTopicName,
			"consumerGroup":       opts.cfg.ParcelBox.KafkaConsumerGroup,
		})
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.reconciler == nil {
			_, _ = w.Write([]byte(`{"error":"reconciler not wired"}`))
			return
		}
		opts.reconciler.Trigger()
		_, _ = w.Write([]byte(`{"triggered":true}`))
	})

	if opts.swaggerPath != "" {
		if fi, err := os.Stat(opts.swaggerPath); err == nil {
			r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Cache-Control", "no-store")
				http.ServeFile(w, r, opts.swaggerPath)
			})
			swaggerURL := fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
			r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))
		}
	}

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	err = srv.Serve(lis)
	if err == http.ErrServerClosed {
		return ctx.Err()
	}
	return err
}
