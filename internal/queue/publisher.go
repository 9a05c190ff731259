package queue

import (
	"context"
	"log"

	"surplus-relay.com/surplus-relay/internal/notifications"
)

// Publisher hands one envelope to the notification delivery backend.
// At-most-once is acceptable: callers log failures and move on.
type Publisher interface {
	Publish(ctx context.Context, env notifications.Envelope) error
}

// LogPublisher writes envelopes to the process log. It is used when no
// delivery backend is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, env notifications.Envelope) error {
	log.Printf("notify %s -> %s (%s)", env.Kind, env.RecipientID, env.ID)
	return nil
}
