package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/comanda"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/kitchen"
	"github.com/aquamarinepk/aqm"
)

// Report fetches today's comandas and prints the sales summary.
func Report(ctx context.Context, source kitchen.OrderSource, out io.Writer, logger aqm.Logger) error {
	e := kitchen.NewEngine(source, nil, nil, logger)
	if err := e.Poll(ctx); err != nil {
		return err
	}
	return printReport(out, comanda.Summarize(e.Snapshot()))
}

func printReport(out io.Writer, r comanda.Report) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Dishes\t%d\n", r.TotalDishes)
	fmt.Fprintf(w, "Revenue\t%s\n\n", r.TotalRevenue.StringFixed(2))

	fmt.Fprintln(w, "TABLE\tTOTAL")
	for _, t := range r.ByTable {
		fmt.Fprintf(w, "%d\t%s\n", t.Number, t.Total.StringFixed(2))
	}

	fmt.Fprintln(w, "\nWAITER\tTOTAL")
	for _, wt := range r.ByWaiter {
		fmt.Fprintf(w, "%s\t%s\n", wt.Name, wt.Total.StringFixed(2))
	}

	categories := make([]string, 0, len(r.ByCategory))
	for c := range r.ByCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	fmt.Fprintln(w, "\nCATEGORY\tDISH\tQTY")
	for _, c := range categories {
		names := make([]string, 0, len(r.ByCategory[c]))
		for n := range r.ByCategory[c] {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(w, "%s\t%s\t%d\n", c, n, r.ByCategory[c][n])
		}
	}
	return w.Flush()
}
