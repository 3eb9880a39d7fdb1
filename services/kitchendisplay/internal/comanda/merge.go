package comanda

import "github.com/appetiteclub/comandas/pkg/enums/dishstatus"

// Merge builds the next canonical state from the previous one and a freshly
// fetched snapshot. The snapshot decides which tickets and dishes exist;
// the previous state decides dish statuses. Neither input is modified.
func Merge(previous, incoming []Ticket) []Ticket {
	prevByID := make(map[string]Ticket, len(previous))
	for _, t := range previous {
		if _, dup := prevByID[t.ID]; !dup {
			prevByID[t.ID] = t
		}
	}

	seen := make(map[string]struct{}, len(incoming))
	out := make([]Ticket, 0, len(incoming))
	for _, in := range incoming {
		if _, dup := seen[in.ID]; dup {
			continue
		}
		seen[in.ID] = struct{}{}

		merged := in.Clone()
		prev, known := prevByID[in.ID]
		for i := range merged.Dishes {
			merged.Dishes[i].Status = dishstatus.Statuses.Preparing
			if !known {
				continue
			}
			if p, ok := previousDish(prev, merged.Dishes[i], i); ok && !p.Status.IsZero() {
				merged.Dishes[i].Status = p.Status
			}
		}
		merged.Status = DeriveTicketStatus(merged)
		out = append(out, merged)
	}
	return out
}

// previousDish finds the counterpart of line in prev by dish id. Lines
// without an id are matched by position.
func previousDish(prev Ticket, line DishLine, pos int) (DishLine, bool) {
	if line.Dish.ID != "" {
		if idx := prev.DishIndex(line.Dish.ID); idx >= 0 {
			return prev.Dishes[idx], true
		}
		return DishLine{}, false
	}
	if pos < len(prev.Dishes) && prev.Dishes[pos].Dish.ID == "" {
		return prev.Dishes[pos], true
	}
	return DishLine{}, false
}
