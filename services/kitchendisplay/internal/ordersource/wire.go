package ordersource

import (
	"github.com/appetiteclub/comandas/pkg/enums/dishstatus"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/comanda"
	"github.com/shopspring/decimal"
)

const (
	ticketCodeActive    = "activo"
	ticketCodeDelivered = "entregado"
)

// ticketResource mirrors the comanda JSON stored by the order service.
// Dishes and quantities travel as parallel arrays.
type ticketResource struct {
	ID         string         `json:"_id"`
	Waiter     waiterResource `json:"mozos"`
	Table      tableResource  `json:"mesas"`
	Dishes     []dishResource `json:"platos"`
	Quantities []int          `json:"cantidades"`
	Notes      string         `json:"observaciones"`
	Status     string         `json:"status,omitempty"`
}

type waiterResource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type tableResource struct {
	ID     string `json:"_id,omitempty"`
	Number int    `json:"nummesa"`
}

type dishResource struct {
	ID       string          `json:"_id"`
	Name     string          `json:"nombre"`
	Price    decimal.Decimal `json:"precio"`
	Category string          `json:"categoria,omitempty"`
	Status   string          `json:"estado,omitempty"`
}

type replaceDishesRequest struct {
	Dishes     []dishResource `json:"platos"`
	Quantities []int          `json:"cantidades"`
}

type dishStatusRequest struct {
	NewStatus string `json:"nuevoEstado"`
}

type ticketStatusRequest struct {
	NewStatus string `json:"nuevoStatus"`
}

func (r ticketResource) toTicket() comanda.Ticket {
	t := comanda.Ticket{
		ID:     r.ID,
		Waiter: comanda.Waiter{ID: r.Waiter.ID, Name: r.Waiter.Name},
		Table:  comanda.Table{ID: r.Table.ID, Number: r.Table.Number},
		Notes:  r.Notes,
		Status: comanda.TicketActive,
		Dishes: make([]comanda.DishLine, 0, len(r.Dishes)),
	}
	if r.Status == ticketCodeDelivered {
		t.Status = comanda.TicketDelivered
	}

	for i, d := range r.Dishes {
		line := comanda.DishLine{
			Dish: comanda.Dish{
				ID:       d.ID,
				Name:     d.Name,
				Price:    d.Price,
				Category: d.Category,
			},
		}
		if i < len(r.Quantities) {
			line.Quantity = r.Quantities[i]
		}
		// Unknown server statuses stay unset; the merger assigns one.
		if s := dishstatus.ByName(d.Status); s != nil {
			line.Status = *s
		}
		t.Dishes = append(t.Dishes, line)
	}
	return t
}

func dishesToResources(lines []comanda.DishLine) ([]dishResource, []int) {
	dishes := make([]dishResource, 0, len(lines))
	quantities := make([]int, 0, len(lines))
	for _, l := range lines {
		dishes = append(dishes, dishResource{
			ID:       l.Dish.ID,
			Name:     l.Dish.Name,
			Price:    l.Dish.Price,
			Category: l.Dish.Category,
		})
		quantities = append(quantities, l.Quantity)
	}
	return dishes, quantities
}

func ticketStatusCode(s comanda.TicketStatus) string {
	if s == comanda.TicketDelivered {
		return ticketCodeDelivered
	}
	return ticketCodeActive
}
