package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStream publishes to a JetStream stream so events survive subscriber
// restarts.
type NATSStream struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
	topic  string
}

// NATSStreamConfig configures a NATSStream instance.
type NATSStreamConfig struct {
	URL        string        // NATS server URL
	StreamName string        // JetStream stream name (e.g., "COMANDAS_EVENTS")
	Topic      string        // Subject/topic pattern (e.g., "comandas.tickets")
	MaxAge     time.Duration // How long to retain events (e.g., 24 hours)
	MaxMsgs    int64         // Maximum number of messages to retain (0 = unlimited)
}

// NewNATSStream connects and makes sure the stream exists.
func NewNATSStream(cfg NATSStreamConfig) (*NATSStream, error) {
	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamConfig := jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{cfg.Topic},
		MaxAge:   cfg.MaxAge,
	}
	if cfg.MaxMsgs > 0 {
		streamConfig.MaxMsgs = cfg.MaxMsgs
	}

	stream, err := js.CreateOrUpdateStream(context.Background(), streamConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.StreamName, err)
	}

	return &NATSStream{
		conn:   conn,
		js:     js,
		stream: stream,
		topic:  cfg.Topic,
	}, nil
}

// Publish publishes a message to the stream and waits for the ack.
func (s *NATSStream) Publish(ctx context.Context, topic string, msg []byte) error {
	_, err := s.js.Publish(ctx, topic, msg)
	if err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}
	return nil
}

// Close closes the NATS connection.
func (s *NATSStream) Close() error {
	s.conn.Close()
	return nil
}
