package nats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
	"github.com/nats-io/nats.go"
)

const defaultHandlerTimeout = 10 * time.Second

// NATSSubscriber implements EventSubscriber over core NATS queue subscriptions
type NATSSubscriber struct {
	nc             *nats.Conn
	queue          string
	handlerTimeout time.Duration
	logger         *logger.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewNATSSubscriber creates a subscriber. An empty queue delivers every message to every instance.
func NewNATSSubscriber(nc *nats.Conn, queue string, log *logger.Logger) *NATSSubscriber {
	return &NATSSubscriber{
		nc:             nc,
		queue:          queue,
		handlerTimeout: defaultHandlerTimeout,
		logger:         log,
	}
}

// Subscribe registers handler for subject; the subscription is drained when ctx is done
func (s *NATSSubscriber) Subscribe(ctx context.Context, subject string, handler port.EventHandler) error {
	cb := func(msg *nats.Msg) {
		s.handleMessage(ctx, msg, handler)
	}

	var (
		sub *nats.Subscription
		err error
	)
	if s.queue != "" {
		sub, err = s.nc.QueueSubscribe(subject, s.queue, cb)
	} else {
		sub, err = s.nc.Subscribe(subject, cb)
	}
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	s.logger.Info("Subscribed to NATS subject", "subject", subject, "queue", s.queue)

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil && err != nats.ErrConnectionClosed {
			s.logger.Warn("Failed to drain NATS subscription", "subject", subject, "error", err.Error())
		}
	}()

	return nil
}

func (s *NATSSubscriber) handleMessage(ctx context.Context, msg *nats.Msg, handler port.EventHandler) {
	if ctx.Err() != nil {
		return
	}

	msgCtx, cancel := context.WithTimeout(ctx, s.handlerTimeout)
	defer cancel()

	if err := handler(msgCtx, msg.Subject, msg.Data); err != nil {
		s.logger.Error("Failed to handle NATS message", err,
			"subject", msg.Subject,
			"size", len(msg.Data),
		)
		return
	}

	s.logger.Debug("NATS message handled", "subject", msg.Subject)
}

// Close unsubscribes every registered subscription
func (s *NATSSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		if sub.IsValid() {
			_ = sub.Unsubscribe()
		}
	}
	s.subs = nil
	return nil
}
