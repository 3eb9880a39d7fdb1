package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/cache"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/kitchen"
	"github.com/aquamarinepk/aqm"
)

// CacheShow prints what the display last persisted to its local cache.
func CacheShow(ctx context.Context, store cache.Store, out io.Writer, logger aqm.Logger) error {
	tickets, err := kitchen.NewEngine(nil, store, nil, logger).LocalCache(ctx)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		fmt.Fprintln(out, "local cache is empty")
		return nil
	}
	return printTickets(out, tickets)
}

// CacheClear removes the persisted comandas entry.
func CacheClear(ctx context.Context, store cache.Store, logger aqm.Logger) error {
	if err := store.Delete(ctx, cache.DefaultKey); err != nil {
		return fmt.Errorf("cannot clear local cache: %w", err)
	}
	logger.Info("Local cache cleared", "key", cache.DefaultKey)
	return nil
}
