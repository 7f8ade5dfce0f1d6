// Package natsstan carries created-entity events over NATS Streaming.
package natsstan

import (
	"context"
	"encoding/json"
	"fmt"

	"syncbridge/internal/notify"

	stan "github.com/nats-io/stan.go"
)

// conn is the part of stan.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	Close() error
}

// Publisher publishes one message per event on "<prefix>.<kind>.created".
type Publisher struct {
	conn   conn
	prefix string
}

var _ notify.Notifier = (*Publisher)(nil)

// Connect opens a streaming connection for publishing.
func Connect(clusterID, clientID, url, prefix string) (*Publisher, error) {
	sc, err := stan.Connect(clusterID, clientID, stan.NatsURL(url))
	if err != nil {
		return nil, fmt.Errorf("stan connect: %w", err)
	}
	return &Publisher{conn: sc, prefix: prefix}, nil
}

// Publish blocks until the streaming server acknowledges the message.
func (p *Publisher) Publish(ctx context.Context, e notify.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := notify.Subject(p.prefix, e.Kind)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.conn.Close()
}
