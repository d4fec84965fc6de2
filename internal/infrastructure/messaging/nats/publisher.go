package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
	"github.com/nats-io/nats.go"
)

// NATSPublisher implements EventPublisher for NATS (core or JetStream)
type NATSPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	owns   bool
	logger *logger.Logger
}

// NewNATSPublisher connects to NATS and creates a publisher that owns the connection
func NewNATSPublisher(natsURL string, jetStream bool, log *logger.Logger) (*NATSPublisher, error) {
	nc, err := Connect(natsURL, "evaluation-dashboard-publisher", log)
	if err != nil {
		return nil, err
	}

	p, err := NewNATSPublisherFromConn(nc, jetStream, log)
	if err != nil {
		nc.Close()
		return nil, err
	}
	p.owns = true
	return p, nil
}

// NewNATSPublisherFromConn creates a publisher on top of an existing connection
func NewNATSPublisherFromConn(nc *nats.Conn, jetStream bool, log *logger.Logger) (*NATSPublisher, error) {
	p := &NATSPublisher{nc: nc, logger: log}
	if !jetStream {
		return p, nil
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}
	p.js = js
	return p, nil
}

// PublishEvent marshals event to JSON and publishes it (async for JetStream)
func (p *NATSPublisher) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if p.js != nil {
		_, err = p.js.PublishAsync(subject, data)
	} else {
		err = p.nc.Publish(subject, data)
	}
	if err != nil {
		p.logger.Error("Failed to publish event", err,
			"subject", subject,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published",
		"subject", subject,
		"size", len(data),
	)

	return nil
}

// Close closes the NATS connection when the publisher owns it
func (p *NATSPublisher) Close() error {
	if p.nc == nil || !p.owns {
		return nil
	}
	p.logger.Info("Closing NATS connection")
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
	return nil
}
