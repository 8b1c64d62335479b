// Command main is the entry point for the Feedline API server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedline/internal/bootstrap"
	"feedline/internal/config"
	"feedline/internal/scheduler"
	"feedline/internal/server"
)

// @title Feedline API
// @version 1.0
// @description Fanout-on-write home timelines: posts, follows, likes and cursor-paginated timelines
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@feedline.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	shutdownTracing, err := bootstrap.InitTracing(cfg, "feedline-api")
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	// Create server with dependency injection
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Inline fanout records failures in the ledger; the API process retries them.
	// In kafka mode the fanout worker owns redelivery.
	var redelivery *scheduler.Scheduler
	if cfg.FanoutMode == config.FanoutModeInline {
		redelivery, err = srv.Runtime().StartRedelivery()
		if err != nil {
			log.Fatalf("Failed to schedule fanout redelivery: %v", err)
		}
	}

	app := server.NewApp()
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if redelivery != nil {
			select {
			case <-redelivery.Stop().Done():
			case <-ctx.Done():
			}
		}

		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server resource shutdown error: %v", err)
		}
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on port %s...", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
