package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/IamSiddharthChoudhary/Assessly/internal/metrics"
)

// Purpose selects one of the three channels a room exposes.
type Purpose string

const (
	PurposeChat      Purpose = "chat"
	PurposeSession   Purpose = "session"
	PurposeSignaling Purpose = "signaling"
)

// ChannelName builds the Redis channel for one (interview, purpose) pair.
// Per-room channels are the isolation boundary: a message published here is
// never visible to another room's subscribers.
func ChannelName(interviewID string, purpose Purpose) string {
	return fmt.Sprintf("interview:%s:%s", interviewID, purpose)
}

// Broker is a thin fan-out over Redis pub/sub. Delivery is fire-and-forget:
// no history, no acks, and a subscriber that is offline at publish time never
// sees the message. FIFO order holds within a single channel only.
type Broker struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewBroker(rdb *redis.Client, log *zap.Logger) *Broker {
	return &Broker{rdb: rdb, log: log}
}

func (b *Broker) Publish(ctx context.Context, interviewID string, purpose Purpose, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", purpose, err)
	}
	if err := b.rdb.Publish(ctx, ChannelName(interviewID, purpose), data).Err(); err != nil {
		return fmt.Errorf("publish to %s channel: %w", purpose, err)
	}
	metrics.ChannelMessagePublished(string(purpose))
	return nil
}

// Subscription delivers raw payloads from one room channel in publish order.
type Subscription struct {
	purpose Purpose
	pubsub  *redis.PubSub
	ch      <-chan *redis.Message
}

// Subscribe opens a live feed on a room channel. The returned subscription
// must be closed by the caller.
func (b *Broker) Subscribe(ctx context.Context, interviewID string, purpose Purpose) *Subscription {
	ps := b.rdb.Subscribe(ctx, ChannelName(interviewID, purpose))
	metrics.SubscriptionOpened(string(purpose))
	return &Subscription{purpose: purpose, pubsub: ps, ch: ps.Channel()}
}

// Messages returns the delivery channel. It is closed when the subscription
// is closed or the context used to subscribe is cancelled.
func (s *Subscription) Messages() <-chan *redis.Message {
	return s.ch
}

func (s *Subscription) Close() error {
	metrics.SubscriptionClosed(string(s.purpose))
	return s.pubsub.Close()
}
