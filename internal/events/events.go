// Package events publishes lifecycle events over NATS. The publisher is
// nil-safe: a nil *Publisher drops everything, so callers never guard.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects for the events beamd emits.
const (
	SubjectDocumentIngested    = "beamd.document.ingested"
	SubjectDocumentDeleted     = "beamd.document.deleted"
	SubjectConnectionCreated   = "beamd.connection.created"
	SubjectConnectionCompleted = "beamd.connection.completed"
)

// Config holds NATS settings. An empty URL disables publishing.
type Config struct {
	URL string `koanf:"url"`
}

// Publisher emits events to NATS.
type Publisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// New connects to NATS. Returns nil (a valid no-op publisher) when
// cfg.URL is empty.
func New(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("beamd"))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	return &Publisher{conn: conn, logger: logger.Named("events")}, nil
}

// Publish emits one event. Failures are logged, not returned: event
// delivery must never fail the operation that produced the event.
func (p *Publisher) Publish(subject string, payload interface{}) {
	if p == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn("event payload not serializable",
			zap.String("subject", subject), zap.Error(err))
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("event publish failed",
			zap.String("subject", subject), zap.Error(err))
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}
