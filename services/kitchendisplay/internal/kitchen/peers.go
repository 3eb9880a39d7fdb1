package kitchen

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/comandas/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

// PeerSubscriber listens to comanda events from other displays and asks the
// engine for an early poll, so a dish marked out of stock elsewhere shows up
// without waiting a full interval.
type PeerSubscriber struct {
	subscriber events.Subscriber
	engine     *Engine
	logger     aqm.Logger
}

func NewPeerSubscriber(subscriber events.Subscriber, engine *Engine, logger aqm.Logger) *PeerSubscriber {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &PeerSubscriber{
		subscriber: subscriber,
		engine:     engine,
		logger:     logger,
	}
}

func (s *PeerSubscriber) Start(ctx context.Context) error {
	if s.subscriber == nil {
		return nil
	}
	if err := s.subscriber.Subscribe(ctx, event.ComandasTopic, s.handleEvent); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", event.ComandasTopic, err)
	}
	s.logger.Info("PeerSubscriber started", "topic", event.ComandasTopic)
	return nil
}

func (s *PeerSubscriber) Stop(ctx context.Context) error {
	return nil
}

func (s *PeerSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var meta event.ComandaEventMetadata
	if err := json.Unmarshal(msg, &meta); err != nil {
		s.logger.Errorf("Failed to unmarshal comanda event: %v", err)
		return nil
	}

	if meta.Source == s.engine.InstanceID() {
		return nil
	}

	s.logger.Debug("comanda changed by peer", "event_type", meta.EventType, "ticket_id", meta.TicketID, "source", meta.Source)
	s.engine.Nudge()
	return nil
}
