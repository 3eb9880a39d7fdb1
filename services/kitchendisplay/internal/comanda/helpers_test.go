package comanda

import (
	"github.com/appetiteclub/comandas/pkg/enums/dishstatus"
	"github.com/shopspring/decimal"
)

func line(id string, status dishstatus.Status) DishLine {
	return DishLine{
		Dish:     Dish{ID: id, Name: "dish " + id, Price: decimal.NewFromInt(10), Category: "mains"},
		Quantity: 1,
		Status:   status,
	}
}

func ticket(id string, dishes ...DishLine) Ticket {
	return Ticket{
		ID:     id,
		Waiter: Waiter{ID: "w1", Name: "Ana"},
		Table:  Table{ID: "t1", Number: 4},
		Dishes: dishes,
		Status: TicketActive,
	}
}
