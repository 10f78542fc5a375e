// Package main runs the home library HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/homelibrary/homelibrary-server/internal/di"
	"github.com/homelibrary/homelibrary-server/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	injector := di.NewContainer()

	// Bootstrap migrates the schema; on failure nothing is served.
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "homelibrary: %v\n", err)
		_ = di.Shutdown(injector)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	<-ctx.Done()
	log.Info("Signal received, shutting down")

	// Reverse dependency order: HTTP server, services, then store, index
	// and metadata cache.
	if err := di.Shutdown(injector); err != nil {
		log.Error("Shutdown error", "error", err)
	}
}
