package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/appetiteclub/comandas/services/kitchendisplay/cmd/utils/internal/commands"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/app"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/cache"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/mongo"
	"github.com/aquamarinepk/aqm"
)

const (
	appName    = "comandas-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	config, err := aqm.LoadConfig(app.AppNamespace, os.Args[2:])
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := config.GetString("log.level")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := aqm.NewLogger(logLevel)

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "tickets":
		source, err := app.NewOrderSource(config)
		if err != nil {
			log.Fatalf("Cannot setup order source: %v", err)
		}
		term, _ := config.GetString("q")
		if err := commands.Tickets(ctx, source, term, os.Stdout, logger); err != nil {
			log.Fatalf("Cannot list comandas: %v", err)
		}

	case "report":
		source, err := app.NewOrderSource(config)
		if err != nil {
			log.Fatalf("Cannot setup order source: %v", err)
		}
		if err := commands.Report(ctx, source, os.Stdout, logger); err != nil {
			log.Fatalf("Cannot build report: %v", err)
		}

	case "cache-show":
		err := withStore(ctx, config, logger, func(store cache.Store) error {
			return commands.CacheShow(ctx, store, os.Stdout, logger)
		})
		if err != nil {
			log.Fatalf("Cannot show local cache: %v", err)
		}

	case "cache-clear":
		err := withStore(ctx, config, logger, func(store cache.Store) error {
			return commands.CacheClear(ctx, store, logger)
		})
		if err != nil {
			log.Fatalf("Cannot clear local cache: %v", err)
		}

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// withStore opens the configured cache backend, runs fn and closes it.
func withStore(ctx context.Context, config *aqm.Config, logger aqm.Logger, fn func(cache.Store) error) error {
	store, err := app.NewStore(config, logger)
	if err != nil {
		return err
	}

	if repo, ok := store.(*mongo.SnapshotRepo); ok {
		if err := repo.Start(ctx); err != nil {
			return err
		}
		defer repo.Stop(ctx)
	}

	return fn(store)
}

func printUsage() {
	fmt.Printf(`%s - Comandas kitchen display utility commands

Usage:
  %s <command> [options]

Commands:
  tickets      Fetch today's comandas once and print them (--q filters by dish)
  report       Print today's sales summary by table, waiter and category
  cache-show   Print the comandas stored in the local cache
  cache-clear  Remove the comandas stored in the local cache
  version      Show version information
  help         Show this help message

Options are read like the service: flags, COMANDAS_* environment variables
or config file (order_source.url, cache.driver, cache.dir, db.mongo.url).
`, appName, appName)
}
