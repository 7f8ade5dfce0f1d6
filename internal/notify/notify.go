// Package notify announces entities created by committed sync batches.
package notify

import (
	"context"
	"time"

	"syncbridge/internal/store"
)

// Event is published once per created entity.
type Event struct {
	Kind      store.Kind `json:"kind"`
	ID        int64      `json:"id"`
	Entity    any        `json:"entity"`
	CreatedAt time.Time  `json:"created_at"`
}

// Notifier delivers events to downstream consumers.
type Notifier interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Subject returns "<prefix>.<singular kind>.created", e.g. "syncbridge.customer.created".
func Subject(prefix string, kind store.Kind) string {
	return prefix + "." + kind.Singular() + ".created"
}

// Subjects returns the subjects of every kind.
func Subjects(prefix string) []string {
	out := make([]string, 0, len(store.Kinds))
	for _, k := range store.Kinds {
		out = append(out, Subject(prefix, k))
	}
	return out
}
