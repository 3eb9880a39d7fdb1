package comanda

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Report summarizes sales for a set of tickets.
type Report struct {
	TotalDishes  int                       `json:"total_dishes"`
	TotalRevenue decimal.Decimal           `json:"total_revenue"`
	ByTable      []TableTotal              `json:"by_table"`
	ByWaiter     []WaiterTotal             `json:"by_waiter"`
	ByCategory   map[string]map[string]int `json:"by_category"`
}

type TableTotal struct {
	Number int             `json:"number"`
	Total  decimal.Decimal `json:"total"`
}

type WaiterTotal struct {
	WaiterID string          `json:"waiter_id"`
	Name     string          `json:"name"`
	Total    decimal.Decimal `json:"total"`
}

// Summarize adds up quantities and revenue per table, waiter and category.
// Dishes without a category count towards totals only.
func Summarize(tickets []Ticket) Report {
	r := Report{
		TotalRevenue: decimal.Zero,
		ByCategory:   make(map[string]map[string]int),
	}
	tables := make(map[int]decimal.Decimal)
	waiters := make(map[string]*WaiterTotal)

	for _, t := range tickets {
		ticketTotal := decimal.Zero
		for _, d := range t.Dishes {
			r.TotalDishes += d.Quantity
			ticketTotal = ticketTotal.Add(d.Dish.Price.Mul(decimal.NewFromInt(int64(d.Quantity))))

			if d.Dish.Category == "" {
				continue
			}
			byName := r.ByCategory[d.Dish.Category]
			if byName == nil {
				byName = make(map[string]int)
				r.ByCategory[d.Dish.Category] = byName
			}
			byName[d.Dish.Name] += d.Quantity
		}

		r.TotalRevenue = r.TotalRevenue.Add(ticketTotal)
		tables[t.Table.Number] = tables[t.Table.Number].Add(ticketTotal)

		w := waiters[t.Waiter.ID]
		if w == nil {
			w = &WaiterTotal{WaiterID: t.Waiter.ID, Name: t.Waiter.Name, Total: decimal.Zero}
			waiters[t.Waiter.ID] = w
		}
		w.Total = w.Total.Add(ticketTotal)
	}

	for number, total := range tables {
		r.ByTable = append(r.ByTable, TableTotal{Number: number, Total: total})
	}
	sort.Slice(r.ByTable, func(i, j int) bool { return r.ByTable[i].Number < r.ByTable[j].Number })

	for _, w := range waiters {
		r.ByWaiter = append(r.ByWaiter, *w)
	}
	sort.Slice(r.ByWaiter, func(i, j int) bool { return r.ByWaiter[i].WaiterID < r.ByWaiter[j].WaiterID })

	return r
}
