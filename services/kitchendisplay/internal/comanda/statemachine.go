package comanda

import "github.com/appetiteclub/comandas/pkg/enums/dishstatus"

// Action tells the caller what a requested status change amounts to.
type Action int

const (
	// ActionIgnore leaves the dish untouched.
	ActionIgnore Action = iota
	// ActionUpdate means the dish status was replaced.
	ActionUpdate
	// ActionRemove means the dish line has to be dropped from its ticket.
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionUpdate:
		return "update"
	case ActionRemove:
		return "remove"
	default:
		return "ignore"
	}
}

// Transition applies requested to dish. Any status is accepted except that
// a delivered dish is locked. Out of stock never becomes a display state:
// it asks for the line to be removed.
func Transition(dish *DishLine, requested dishstatus.Status) Action {
	if dish == nil || requested.IsZero() {
		return ActionIgnore
	}
	if dish.Status == dishstatus.Statuses.Delivered {
		return ActionIgnore
	}
	if requested == dishstatus.Statuses.OutOfStock {
		return ActionRemove
	}
	dish.Status = requested
	return ActionUpdate
}

// DeriveTicketStatus reports delivered only for a non-empty ticket whose
// dishes are all delivered.
func DeriveTicketStatus(t Ticket) TicketStatus {
	if len(t.Dishes) == 0 {
		return TicketActive
	}
	for _, d := range t.Dishes {
		if d.Status != dishstatus.Statuses.Delivered {
			return TicketActive
		}
	}
	return TicketDelivered
}

// RemoveDish returns a copy of t without the line for dishID. The second
// result is false when the ticket has no such dish.
func RemoveDish(t Ticket, dishID string) (Ticket, bool) {
	idx := t.DishIndex(dishID)
	if idx < 0 {
		return t.Clone(), false
	}
	out := t
	out.Dishes = make([]DishLine, 0, len(t.Dishes)-1)
	out.Dishes = append(out.Dishes, t.Dishes[:idx]...)
	out.Dishes = append(out.Dishes, t.Dishes[idx+1:]...)
	return out, true
}
