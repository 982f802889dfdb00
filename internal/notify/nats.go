package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes notifications as JSON on <subject>.<kind>.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	owned   bool
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher publishes on an existing connection.
func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subject}
}

// ConnectNATSPublisher dials url. Close releases the connection.
func ConnectNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("managerd-events"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{nc: nc, subject: subject, owned: true}, nil
}

// Publish sends n. Delivery is at most once; there are no acknowledgements.
func (p *NATSPublisher) Publish(_ context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.nc.Publish(p.subject+"."+string(n.Kind), data); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Close drains the connection if this publisher owns it.
func (p *NATSPublisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.nc.Drain()
}
