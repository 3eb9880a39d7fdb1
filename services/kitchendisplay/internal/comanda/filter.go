package comanda

import "strings"

// FilterByDishName keeps the tickets that contain at least one dish whose
// name includes term, ignoring case. An empty term keeps everything.
func FilterByDishName(tickets []Ticket, term string) []Ticket {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return tickets
	}

	out := make([]Ticket, 0, len(tickets))
	for _, t := range tickets {
		for _, d := range t.Dishes {
			if strings.Contains(strings.ToLower(d.Dish.Name), term) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
