package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"ride-token-ledger/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// EventChannel is the pub/sub channel carrying ledger notifications.
const EventChannel = "ledger.events"

// Notifier publishes ledger notifications over Redis pub/sub. Delivery is
// best effort: a publish failure is logged and swallowed so the financial
// operation that produced the notification never fails on it.
type Notifier struct {
	client *goredis.Client
	log    zerolog.Logger
}

// NewNotifier creates a Redis-backed event notifier.
func NewNotifier(client *goredis.Client, log zerolog.Logger) *Notifier {
	return &Notifier{client: client, log: log}
}

// Publish sends a notification on the event channel.
func (n *Notifier) Publish(ctx context.Context, notif ports.Notification) error {
	payload, err := json.Marshal(notif)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := n.client.Publish(ctx, EventChannel, payload).Err(); err != nil {
		n.log.Warn().
			Err(err).
			Str("kind", notif.Kind).
			Str("reference_id", notif.ReferenceID).
			Msg("notification publish failed")
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
