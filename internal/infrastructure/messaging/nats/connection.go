package nats

import (
	"fmt"
	"time"

	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
	"github.com/nats-io/nats.go"
)

// Connect opens a NATS connection with reconnect handling shared by publisher and subscriber.
func Connect(natsURL, name string, log *logger.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info("Connected to NATS", "url", natsURL)
	return nc, nil
}
