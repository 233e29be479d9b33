// Package main provides the goodbooks ingestion tool: it loads the CSV collections
// into the configured store and rebuilds the search index.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/samber/do/v2"

	"github.com/listenupapp/goodbooks-api/internal/config"
	"github.com/listenupapp/goodbooks-api/internal/di"
	"github.com/listenupapp/goodbooks-api/internal/di/providers"
	"github.com/listenupapp/goodbooks-api/internal/ingest"
	"github.com/listenupapp/goodbooks-api/internal/logger"
	"github.com/listenupapp/goodbooks-api/internal/service"
	"github.com/listenupapp/goodbooks-api/internal/store"
	"github.com/listenupapp/goodbooks-api/internal/validation"
)

// Globals are flags shared by every command.
type Globals struct {
	Config string `short:"c" help:"Path to a YAML config file (defaults to ./config.yaml when present)" type:"path"`
}

// CLI represents the complete command structure for the ingest tool.
type CLI struct {
	Globals

	Load    LoadCmd    `cmd:"" help:"Load CSV collections into the store"`
	Reindex ReindexCmd `cmd:"" help:"Rebuild the search index from the store"`
}

// LoadCmd loads collections from a URL or a local directory.
type LoadCmd struct {
	Source       string   `help:"Base URL or directory holding <collection>.csv files (defaults to ingest.source)" placeholder:"URL|DIR"`
	Collections  []string `help:"Collections to load (default all)" enum:"books,tags,ratings,book_tags,to_read" sep:","`
	BatchSize    int      `help:"Records per store write (defaults to ingest.batch_size)"`
	KeepExisting bool     `help:"Upsert into existing collections instead of replacing them"`
}

// ReindexCmd rebuilds the Bleve index.
type ReindexCmd struct{}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("goodbooks-ingest"),
		kong.Description("Load the goodbooks-10k dataset into the GoodBooks API store."),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// env is the bootstrapped data layer shared by the commands.
type env struct {
	injector *do.RootScope
	cfg      *config.Config
	log      *logger.Logger
	store    *providers.StoreHandle
	search   *service.SearchService
}

func setup(g *Globals) (*env, error) {
	injector := di.NewContainer(g.Config)
	if err := di.BootstrapData(injector); err != nil {
		_ = injector.Shutdown()
		return nil, err
	}
	return &env{
		injector: injector,
		cfg:      do.MustInvoke[*config.Config](injector),
		log:      do.MustInvoke[*logger.Logger](injector),
		store:    do.MustInvoke[*providers.StoreHandle](injector),
		search:   do.MustInvoke[*service.SearchService](injector),
	}, nil
}

func (e *env) close() {
	if err := e.injector.Shutdown(); err != nil {
		e.log.Error("Shutdown error", "error", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Run executes the load command.
func (c *LoadCmd) Run(g *Globals) error {
	e, err := setup(g)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := signalContext()
	defer cancel()

	source := c.Source
	if source == "" {
		source = e.cfg.Ingest.Source
	}
	batchSize := c.BatchSize
	if batchSize <= 0 {
		batchSize = e.cfg.Ingest.BatchSize
	}
	collections := make([]store.Collection, len(c.Collections))
	for i, name := range c.Collections {
		collections[i] = store.Collection(name)
	}

	// A nil *SearchService must not become a non-nil interface.
	var reindexer ingest.Reindexer
	if e.search != nil {
		reindexer = e.search
	}

	loader := ingest.NewLoader(
		ingest.NewSource(source, nil),
		e.store.Store,
		e.store.Writer,
		do.MustInvoke[*validation.Validator](e.injector),
		reindexer,
		e.log.Logger,
	)

	report, err := loader.Load(ctx, ingest.Options{
		Collections:  collections,
		BatchSize:    batchSize,
		KeepExisting: c.KeepExisting,
	})
	if err != nil {
		return err
	}
	return report.Print(os.Stdout)
}

// Run executes the reindex command.
func (c *ReindexCmd) Run(g *Globals) error {
	e, err := setup(g)
	if err != nil {
		return err
	}
	defer e.close()

	if e.search == nil {
		if e.cfg.Store.Driver == config.DriverSQLite {
			fmt.Println("sqlite store maintains its own full-text index; nothing to rebuild")
			return nil
		}
		return errors.New("search index is disabled (search.enabled=false)")
	}

	ctx, cancel := signalContext()
	defer cancel()

	count, err := e.search.ReindexAll(ctx)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	fmt.Printf("search index rebuilt: %d books\n", count)
	return nil
}
