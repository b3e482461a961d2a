package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/vsinha/stockroom/pkg/infrastructure/events"
	"go.uber.org/zap"
)

// publisher is the subset of *nats.Conn the forwarder needs
type publisher interface {
	Publish(subject string, data []byte) error
}

// Forwarder republishes domain events on NATS subjects <prefix>.<event type>
type Forwarder struct {
	conn   publisher
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

// Connect dials NATS and returns a forwarder ready to subscribe to the event store
func Connect(url, prefix string, logger *zap.Logger) (*Forwarder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("stockroom"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	f := newForwarder(nc, prefix, logger)
	f.nc = nc
	return f, nil
}

func newForwarder(conn publisher, prefix string, logger *zap.Logger) *Forwarder {
	if prefix == "" {
		prefix = "stockroom"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forwarder{conn: conn, prefix: prefix, logger: logger}
}

// Subject returns the subject an event type is published on
func (f *Forwarder) Subject(eventType string) string {
	return f.prefix + "." + eventType
}

func (f *Forwarder) CanHandle(string) bool {
	return true
}

// Handle publishes the event envelope as JSON
func (f *Forwarder) Handle(event events.Event) error {
	data, err := json.Marshal(events.Envelope(event))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type(), err)
	}
	if err := f.conn.Publish(f.Subject(event.Type()), data); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type(), err)
	}
	return nil
}

// Close drains pending messages and closes the connection
func (f *Forwarder) Close() error {
	if f.nc == nil {
		return nil
	}
	if err := f.nc.Drain(); err != nil {
		f.nc.Close()
		return err
	}
	return nil
}
