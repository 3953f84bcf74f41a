package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	twistmux "github.com/FIBO-Engineer/twist-mux"
)

func main() {
	cfg, err := twistmux.LoadConfig("../../config/twist_mux.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	mux, err := twistmux.New(cfg)
	if err != nil {
		log.Fatalf("build mux: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mux.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("mux exited: %v", err)
	}
}
