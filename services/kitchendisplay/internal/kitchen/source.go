package kitchen

import (
	"context"

	"github.com/appetiteclub/comandas/pkg/enums/dishstatus"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/comanda"
)

// OrderSource is the backing order service as seen by the engine.
type OrderSource interface {
	FetchToday(ctx context.Context) ([]comanda.Ticket, error)
	ReplaceDishes(ctx context.Context, ticketID string, dishes []comanda.DishLine) error
	SetDishStatus(ctx context.Context, ticketID, dishID string, status dishstatus.Status) error
	SetTicketStatus(ctx context.Context, ticketID string, status comanda.TicketStatus) error
}

// Listener is told about every new canonical state, after merges and edits.
type Listener interface {
	OnSnapshotUpdated(tickets []comanda.Ticket)
}

type ListenerFunc func(tickets []comanda.Ticket)

func (f ListenerFunc) OnSnapshotUpdated(tickets []comanda.Ticket) {
	f(tickets)
}
