package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/middleware"
)

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	PublishMsg(m *nats.Msg) error
}

// NATSPublisher publishes JSON envelopes on "<prefix>.<event type>".
type NATSPublisher struct {
	conn   Conn
	prefix string
	logger *zap.Logger
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn Conn, prefix string, logger *zap.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}
}

// Connect dials NATS with reconnect handling.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("pitchcheck"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
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
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(e Event) string {
	if p.prefix == "" {
		return e.Type()
	}
	return p.prefix + "." + e.Type()
}

// Publish implements Publisher. The correlation ID is also sent as a
// header so consumers can filter without decoding the payload.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	env := NewEnvelope(ctx, e)
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := p.Subject(e)
	msg := nats.NewMsg(subject)
	msg.Data = payload
	msg.Header.Set("Content-Type", "application/json")
	if env.CorrelationID != "" {
		msg.Header.Set(middleware.CorrelationIDHeader, env.CorrelationID)
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("event published", zap.String("subject", subject))
	return nil
}
