package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/celestiaorg/ec2api/internal/app"
	"github.com/celestiaorg/ec2api/internal/compute"
	"github.com/celestiaorg/ec2api/internal/config"
	"github.com/celestiaorg/ec2api/internal/constants"
	"github.com/celestiaorg/ec2api/internal/logger"
)

// shutdownTimeout bounds how long in-flight requests may run after a signal
const shutdownTimeout = 30 * time.Second

func main() {
	// Load .env when present; a missing file is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("Failed to load .env file: %v", err)
	}

	cfg, err := config.Load(os.Getenv(constants.EnvConfigFile))
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.InitializeAndConfigure(cfg.Log.Level, cfg.Log.Format)

	requestCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()

	server := app.NewApp(requestCtx, cfg, compute.NewAWSClientFactory(cfg.AWS))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.InfoWithFields("Starting server", logger.Fields{
			"port":                   cfg.Port,
			"region":                 cfg.AWS.Region,
			"enable_security_groups": cfg.EnableSecurityGroups,
		})
		errCh <- server.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatalf("Server stopped: %v", err)
		}
	case <-ctx.Done():
		logger.Infof("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Requests still waiting on EC2 when the timeout expires are canceled
		stopAfter := context.AfterFunc(shutdownCtx, cancelRequests)
		defer stopAfter()
		if err := server.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Errorf("Graceful shutdown failed: %v", err)
		}
	}
}
