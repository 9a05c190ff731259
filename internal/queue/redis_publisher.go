package queue

import (
	"context"
	"fmt"
	"slices"

	"github.com/redis/rueidis"

	"surplus-relay.com/surplus-relay/internal/notifications"
)

// RedisPublisher appends each envelope to the recipient's inbox list and
// announces it on a shared channel for live consumers. Inboxes are capped at
// inboxSize entries; older envelopes are trimmed on every publish.
type RedisPublisher struct {
	client    rueidis.Client
	prefix    string
	inboxSize int64
}

func NewRedisPublisher(client rueidis.Client, keyPrefix string, inboxSize int64) *RedisPublisher {
	return &RedisPublisher{
		client:    client,
		prefix:    keyPrefix,
		inboxSize: inboxSize,
	}
}

func (r *RedisPublisher) InboxKey(recipientID string) string {
	return fmt.Sprintf("%s:inbox:%s", r.prefix, recipientID)
}

func (r *RedisPublisher) Channel() string {
	return r.prefix + ":events"
}

func (r *RedisPublisher) Publish(ctx context.Context, env notifications.Envelope) error {
	body, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("marshal envelope %s: %w", env.ID, err)
	}

	key := r.InboxKey(env.RecipientID)
	cmds := rueidis.Commands{
		r.client.B().Rpush().Key(key).Element(string(body)).Build(),
		r.client.B().Ltrim().Key(key).Start(-r.inboxSize).Stop(-1).Build(),
		r.client.B().Publish().Channel(r.Channel()).Message(string(body)).Build(),
	}

	for _, res := range r.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("publish envelope %s: %w", env.ID, err)
		}
	}

	return nil
}

// Inbox returns up to limit of the recipient's most recent envelopes, newest
// first.
func (r *RedisPublisher) Inbox(ctx context.Context, recipientID string, limit int64) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	cmd := r.client.B().Lrange().Key(r.InboxKey(recipientID)).Start(-limit).Stop(-1).Build()
	entries, err := r.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, err
	}
	slices.Reverse(entries)
	return entries, nil
}
