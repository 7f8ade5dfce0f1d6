package natsstan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"syncbridge/internal/notify"

	stan "github.com/nats-io/stan.go"
)

// Subscriber delivers created events of every kind to a handler.
type Subscriber struct {
	ClusterID string
	ClientID  string
	URL       string
	Prefix    string
	// Durable keeps the subscription position across restarts when set.
	Durable string
	Logger  *slog.Logger
}

// Subscribe connects and subscribes to every created subject. The connection
// is closed when ctx is done. A message is acknowledged only when handler
// returns nil; otherwise it is redelivered.
func (s *Subscriber) Subscribe(ctx context.Context, handler func(ctx context.Context, e notify.Event) error) error {
	clientID := s.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("syncctl-%d", time.Now().UnixNano())
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sc, err := stan.Connect(s.ClusterID, clientID, stan.NatsURL(s.URL))
	if err != nil {
		return fmt.Errorf("stan connect: %w", err)
	}
	go func() {
		<-ctx.Done()
		sc.Close()
	}()

	opts := []stan.SubscriptionOption{stan.SetManualAckMode(), stan.AckWait(10 * time.Second)}
	if s.Durable != "" {
		opts = append(opts, stan.DurableName(s.Durable), stan.DeliverAllAvailable())
	}

	for _, subject := range notify.Subjects(s.Prefix) {
		_, err := sc.Subscribe(subject, func(m *stan.Msg) {
			hCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := dispatch(hCtx, m.Data, handler); err != nil {
				logger.Error("event handler failed", "subject", m.Subject, "error", err)
				return
			}
			if err := m.Ack(); err != nil {
				logger.Error("ack failed", "subject", m.Subject, "error", err)
			}
		}, opts...)
		if err != nil {
			sc.Close()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
	}
	return nil
}

func dispatch(ctx context.Context, data []byte, handler func(context.Context, notify.Event) error) error {
	var e notify.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	return handler(ctx, e)
}
