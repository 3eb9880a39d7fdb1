package event

import "time"

const (
	ComandasTopic          = "comandas.tickets"
	EventDishStatusChanged = "comanda.dish.status_changed"
	EventDishOutOfStock    = "comanda.dish.out_of_stock"
	EventTicketDelivered   = "comanda.ticket.delivered"
)

type ComandaEventMetadata struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	// Source identifies the display instance that made the change.
	Source   string `json:"source"`
	TicketID string `json:"ticket_id"`

	// Denormalized data for display
	TableNumber int    `json:"table_number,omitempty"`
	WaiterID    string `json:"waiter_id,omitempty"`
	WaiterName  string `json:"waiter_name,omitempty"`
}

type DishStatusChangedEvent struct {
	ComandaEventMetadata
	DishID         string `json:"dish_id"`
	DishName       string `json:"dish_name,omitempty"`
	NewStatus      string `json:"new_status"`
	PreviousStatus string `json:"previous_status,omitempty"`
}

type DishOutOfStockEvent struct {
	ComandaEventMetadata
	DishID   string `json:"dish_id"`
	DishName string `json:"dish_name,omitempty"`
	Quantity int    `json:"quantity"`
}

type TicketDeliveredEvent struct {
	ComandaEventMetadata
	DishCount int `json:"dish_count"`
}
