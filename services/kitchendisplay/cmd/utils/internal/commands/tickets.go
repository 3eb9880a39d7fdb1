package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/comanda"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/kitchen"
	"github.com/aquamarinepk/aqm"
)

// Tickets fetches today's comandas once and prints them, optionally
// filtered by dish name.
func Tickets(ctx context.Context, source kitchen.OrderSource, term string, out io.Writer, logger aqm.Logger) error {
	e := kitchen.NewEngine(source, nil, nil, logger)
	if err := e.Poll(ctx); err != nil {
		return err
	}

	tickets := comanda.FilterByDishName(e.Tickets(), term)
	logger.Info("Fetched comandas", "count", len(tickets))
	return printTickets(out, tickets)
}

func printTickets(out io.Writer, tickets []comanda.Ticket) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COMANDA\tTABLE\tWAITER\tQTY\tDISH\tSTATUS")
	for _, t := range tickets {
		for _, d := range t.Dishes {
			fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\t%s\n", t.ID, t.Table.Number, t.Waiter.Name, d.Quantity, d.Dish.Name, d.Status.Label())
		}
		if len(t.Dishes) == 0 {
			fmt.Fprintf(w, "%s\t%d\t%s\t-\t-\t-\n", t.ID, t.Table.Number, t.Waiter.Name)
		}
	}
	return w.Flush()
}
