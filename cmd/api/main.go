// Package main provides the entry point for the GoodBooks API server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/samber/do/v2"

	"github.com/listenupapp/goodbooks-api/internal/api"
	"github.com/listenupapp/goodbooks-api/internal/di"
	"github.com/listenupapp/goodbooks-api/internal/logger"
)

// CLI holds the server command-line flags.
type CLI struct {
	Config  string           `short:"c" help:"Path to a YAML config file (defaults to ./config.yaml when present)" type:"path"`
	Version kong.VersionFlag `help:"Print the version and exit"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("goodbooks-api"),
		kong.Description("Read-mostly REST API over the goodbooks-10k dataset."),
		kong.UsageOnError(),
		kong.Vars{"version": api.Version},
	)

	// Create DI container
	injector := di.NewContainer(cli.Config)

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// Handles shut down in reverse dependency order: server, limiter, search index, store
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Server stopped")
}
