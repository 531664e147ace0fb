package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/ParcelBox/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	if cfg.ParcelBox.WorkerHTTPAddr == "" {
		cfg.ParcelBox.WorkerHTTPAddr = ":8082"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := RunParcelWorker(ctx, cfg, defaultWorkerFactories(), os.Getenv("swaggerPath")); err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}
}
