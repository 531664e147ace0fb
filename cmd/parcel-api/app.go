package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

type parcelAPIOpts struct {
	httpAddr string

	onListen func(httpAddr string)
}

// runParcelAPI serves handler until ctx is cancelled, then shuts the server
// down with a short grace period.
func runParcelAPI(ctx context.Context, opts parcelAPIOpts, handler http.Handler) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8080"
	}
	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP API listening", "addr", lis.Addr().String())
	err = srv.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		slog.Info("HTTP API stopped")
		return ctx.Err()
	}
	return err
}
