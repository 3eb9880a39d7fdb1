package comanda

import (
	"github.com/appetiteclub/comandas/pkg/enums/dishstatus"
	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketActive    TicketStatus = "active"
	TicketDelivered TicketStatus = "delivered"
)

type Waiter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Table struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
}

type Dish struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

// DishLine is one ordered dish inside a ticket together with its quantity.
type DishLine struct {
	Dish     Dish              `json:"dish"`
	Quantity int               `json:"quantity"`
	Status   dishstatus.Status `json:"status"`
}

// Ticket is a kitchen order (comanda) for one table and waiter.
type Ticket struct {
	ID     string       `json:"id"`
	Waiter Waiter       `json:"waiter"`
	Table  Table        `json:"table"`
	Dishes []DishLine   `json:"dishes"`
	Notes  string       `json:"notes,omitempty"`
	Status TicketStatus `json:"status"`
}

// Clone returns a deep copy so callers can hand tickets out without sharing
// the dish slice.
func (t Ticket) Clone() Ticket {
	c := t
	if t.Dishes != nil {
		c.Dishes = make([]DishLine, len(t.Dishes))
		copy(c.Dishes, t.Dishes)
	}
	return c
}

// DishIndex returns the position of the dish line with the given id, or -1.
func (t Ticket) DishIndex(dishID string) int {
	for i := range t.Dishes {
		if t.Dishes[i].Dish.ID == dishID {
			return i
		}
	}
	return -1
}

// CloneAll deep copies a ticket collection.
func CloneAll(tickets []Ticket) []Ticket {
	if tickets == nil {
		return nil
	}
	out := make([]Ticket, len(tickets))
	for i := range tickets {
		out[i] = tickets[i].Clone()
	}
	return out
}

// IndexOf returns the position of the ticket with the given id, or -1.
func IndexOf(tickets []Ticket, ticketID string) int {
	for i := range tickets {
		if tickets[i].ID == ticketID {
			return i
		}
	}
	return -1
}
