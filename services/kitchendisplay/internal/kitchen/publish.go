package kitchen

import (
	"context"
	"encoding/json"
	"time"

	"github.com/appetiteclub/comandas/pkg/enums/dishstatus"
	"github.com/appetiteclub/comandas/pkg/event"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/comanda"
	"github.com/google/uuid"
)

func (e *Engine) metadata(eventType string, t comanda.Ticket) event.ComandaEventMetadata {
	return event.ComandaEventMetadata{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		OccurredAt:  time.Now().UTC(),
		Source:      e.instanceID,
		TicketID:    t.ID,
		TableNumber: t.Table.Number,
		WaiterID:    t.Waiter.ID,
		WaiterName:  t.Waiter.Name,
	}
}

func (e *Engine) publishStatusChanged(ctx context.Context, t comanda.Ticket, before comanda.DishLine, status dishstatus.Status) {
	e.publish(ctx, event.DishStatusChangedEvent{
		ComandaEventMetadata: e.metadata(event.EventDishStatusChanged, t),
		DishID:               before.Dish.ID,
		DishName:             before.Dish.Name,
		NewStatus:            status.Name,
		PreviousStatus:       before.Status.Name,
	})
}

func (e *Engine) publishOutOfStock(ctx context.Context, t comanda.Ticket, removed comanda.DishLine) {
	e.publish(ctx, event.DishOutOfStockEvent{
		ComandaEventMetadata: e.metadata(event.EventDishOutOfStock, t),
		DishID:               removed.Dish.ID,
		DishName:             removed.Dish.Name,
		Quantity:             removed.Quantity,
	})
}

func (e *Engine) publishDelivered(ctx context.Context, t comanda.Ticket) {
	e.publish(ctx, event.TicketDeliveredEvent{
		ComandaEventMetadata: e.metadata(event.EventTicketDelivered, t),
		DishCount:            len(t.Dishes),
	})
}

// publish is best effort; a broken broker never blocks the kitchen.
func (e *Engine) publish(ctx context.Context, evt interface{}) {
	if e.publisher == nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		e.logger.Error("cannot encode comanda event", "error", err)
		return
	}
	if err := e.publisher.Publish(ctx, event.ComandasTopic, data); err != nil {
		e.logger.Error("cannot publish comanda event", "error", err)
	}
}
