// Package main runs the subscription shop service.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	app "github.com/advantage-shop/shop-service/internal/app"
	"github.com/advantage-shop/shop-service/internal/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to the YAML configuration file")
	flag.Parse()

	if v := os.Getenv("SHOP_CONFIG"); v != "" {
		*configPath = v
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.NewApplication(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialise application: %v", err)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	if err := application.Shutdown(context.Background()); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
}
