package kitchen

import (
	"context"
	"sync"

	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/comanda"
	"github.com/aquamarinepk/aqm"
)

const subscriberBuffer = 16

// Broadcaster fans canonical state updates out to connected displays.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan []comanda.Ticket
	logger      aqm.Logger
}

func NewBroadcaster(logger aqm.Logger) *Broadcaster {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Broadcaster{
		subscribers: make(map[string]chan []comanda.Ticket),
		logger:      logger,
	}
}

// OnSnapshotUpdated never blocks; slow subscribers miss updates.
func (b *Broadcaster) OnSnapshotUpdated(tickets []comanda.Ticket) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subscriberID, ch := range b.subscribers {
		select {
		case ch <- tickets:
		default:
			b.logger.Info("subscriber channel full, dropping update", "subscriber_id", subscriberID)
		}
	}
}

// Subscribe adds a subscriber and returns its update channel.
func (b *Broadcaster) Subscribe(subscriberID string) <-chan []comanda.Ticket {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.subscribers[subscriberID]; ok {
		close(old)
	}
	ch := make(chan []comanda.Ticket, subscriberBuffer)
	b.subscribers[subscriberID] = ch

	b.logger.Info("new display subscriber", "subscriber_id", subscriberID, "total_subscribers", len(b.subscribers))
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[subscriberID]; ok {
		close(ch)
		delete(b.subscribers, subscriberID)
		b.logger.Info("display subscriber disconnected", "subscriber_id", subscriberID, "total_subscribers", len(b.subscribers))
	}
}

func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Broadcaster) Start(ctx context.Context) error {
	return nil
}

// Stop closes every subscriber channel.
func (b *Broadcaster) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	return nil
}
