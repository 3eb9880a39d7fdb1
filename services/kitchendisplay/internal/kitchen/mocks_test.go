package kitchen

import (
	"context"
	"errors"
	"sync"

	"github.com/appetiteclub/comandas/pkg/enums/dishstatus"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/cache"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/comanda"
	"github.com/aquamarinepk/aqm/events"
	"github.com/shopspring/decimal"
)

type dishStatusCall struct {
	TicketID string
	DishID   string
	Status   dishstatus.Status
}

type replaceDishesCall struct {
	TicketID string
	Dishes   []comanda.DishLine
}

type ticketStatusCall struct {
	TicketID string
	Status   comanda.TicketStatus
}

// MockOrderSource serves a configurable list of tickets and records every
// write-back.
type MockOrderSource struct {
	mu                  sync.Mutex
	tickets             []comanda.Ticket
	FetchTodayFunc      func(ctx context.Context) ([]comanda.Ticket, error)
	ReplaceDishesFunc   func(ctx context.Context, ticketID string, dishes []comanda.DishLine) error
	SetDishStatusFunc   func(ctx context.Context, ticketID, dishID string, status dishstatus.Status) error
	SetTicketStatusFunc func(ctx context.Context, ticketID string, status comanda.TicketStatus) error

	Fetches      int
	ReplaceCalls []replaceDishesCall
	DishCalls    []dishStatusCall
	TicketCalls  []ticketStatusCall
}

func NewMockOrderSource(tickets ...comanda.Ticket) *MockOrderSource {
	return &MockOrderSource{tickets: tickets}
}

func (m *MockOrderSource) SetTickets(tickets ...comanda.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets = tickets
}

func (m *MockOrderSource) FetchToday(ctx context.Context) ([]comanda.Ticket, error) {
	m.mu.Lock()
	m.Fetches++
	fn := m.FetchTodayFunc
	tickets := comanda.CloneAll(m.tickets)
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return tickets, nil
}

func (m *MockOrderSource) ReplaceDishes(ctx context.Context, ticketID string, dishes []comanda.DishLine) error {
	m.mu.Lock()
	m.ReplaceCalls = append(m.ReplaceCalls, replaceDishesCall{TicketID: ticketID, Dishes: append([]comanda.DishLine(nil), dishes...)})
	fn := m.ReplaceDishesFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, ticketID, dishes)
	}
	return nil
}

func (m *MockOrderSource) SetDishStatus(ctx context.Context, ticketID, dishID string, status dishstatus.Status) error {
	m.mu.Lock()
	m.DishCalls = append(m.DishCalls, dishStatusCall{TicketID: ticketID, DishID: dishID, Status: status})
	fn := m.SetDishStatusFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, ticketID, dishID, status)
	}
	return nil
}

func (m *MockOrderSource) SetTicketStatus(ctx context.Context, ticketID string, status comanda.TicketStatus) error {
	m.mu.Lock()
	m.TicketCalls = append(m.TicketCalls, ticketStatusCall{TicketID: ticketID, Status: status})
	fn := m.SetTicketStatusFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, ticketID, status)
	}
	return nil
}

func (m *MockOrderSource) ticketCalls() []ticketStatusCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ticketStatusCall(nil), m.TicketCalls...)
}

func (m *MockOrderSource) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Fetches
}

type MockPublisher struct {
	mu              sync.Mutex
	PublishFunc     func(ctx context.Context, topic string, data []byte) error
	PublishedEvents []publishedEvent
}

type publishedEvent struct {
	Topic string
	Data  []byte
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	m.mu.Lock()
	m.PublishedEvents = append(m.PublishedEvents, publishedEvent{Topic: topic, Data: data})
	fn := m.PublishFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, topic, data)
	}
	return nil
}

func (m *MockPublisher) events() []publishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedEvent(nil), m.PublishedEvents...)
}

type MockSubscriber struct {
	SubscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
	Handlers      map[string]events.HandlerFunc
}

func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{Handlers: make(map[string]events.HandlerFunc)}
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, topic, handler)
	}
	m.Handlers[topic] = handler
	return nil
}

// MockStore is an in-memory cache.Store.
type MockStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	SaveFunc func(ctx context.Context, key string, payload []byte) error
	Saves    int
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string][]byte)}
}

func (m *MockStore) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.data[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return append([]byte(nil), payload...), nil
}

func (m *MockStore) Save(ctx context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, key, payload); err != nil {
			return err
		}
	}
	m.data[key] = append([]byte(nil), payload...)
	return nil
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

var errBackend = errors.New("backend unavailable")

func dish(id string) comanda.DishLine {
	return comanda.DishLine{
		Dish:     comanda.Dish{ID: id, Name: "dish " + id, Price: decimal.NewFromInt(10), Category: "mains"},
		Quantity: 1,
	}
}

func namedDish(id, name string) comanda.DishLine {
	d := dish(id)
	d.Dish.Name = name
	return d
}

func withStatus(d comanda.DishLine, status dishstatus.Status) comanda.DishLine {
	d.Status = status
	return d
}

func comandaTicket(id string, dishes ...comanda.DishLine) comanda.Ticket {
	return comanda.Ticket{
		ID:     id,
		Waiter: comanda.Waiter{ID: "w1", Name: "Ana"},
		Table:  comanda.Table{ID: "t1", Number: 4},
		Dishes: dishes,
	}
}

func findTicket(tickets []comanda.Ticket, id string) (comanda.Ticket, bool) {
	idx := comanda.IndexOf(tickets, id)
	if idx < 0 {
		return comanda.Ticket{}, false
	}
	return tickets[idx], true
}

func dishStatus(t comanda.Ticket, dishID string) dishstatus.Status {
	idx := t.DishIndex(dishID)
	if idx < 0 {
		return dishstatus.Status{}
	}
	return t.Dishes[idx].Status
}
