package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/IamSiddharthChoudhary/Assessly/internal/models"
	"github.com/IamSiddharthChoudhary/Assessly/internal/pubsub"
)

var ErrBadSignalKind = errors.New("signaling message kind must be offer, answer or ice-candidate")

// Relay brokers peer-connection negotiation for a room. It is deliberately
// dumb: every message published on a room's signaling channel is fanned out
// to every subscriber of that channel, payload untouched. Delivery is
// fire-and-forget with no history, so a participant joining after negotiation
// sees nothing and must re-initiate.
//
// The relay is not a participant in the offer/answer state machine. Ordering
// holds per channel only; an ice-candidate may legitimately arrive before the
// answer it belongs to, and buffering candidates until a remote description
// exists is the consumer's contract, not the relay's.
type Relay struct {
	broker *pubsub.Broker
	log    *zap.Logger
}

func NewRelay(broker *pubsub.Broker, log *zap.Logger) *Relay {
	return &Relay{broker: broker, log: log}
}

// Publish validates the envelope and fans the message out. Self-messages are
// not filtered here: receivers compare sender identity and drop their own.
func (r *Relay) Publish(ctx context.Context, interviewID string, msg models.SignalingMessage) error {
	if !msg.Kind.Valid() {
		return ErrBadSignalKind
	}
	if msg.Sender == "" {
		return fmt.Errorf("signaling message missing sender identity")
	}
	return r.broker.Publish(ctx, interviewID, pubsub.PurposeSignaling, msg)
}

// Feed is a live view of a room's signaling channel.
type Feed struct {
	C      <-chan models.SignalingMessage
	cancel context.CancelFunc
	sub    *pubsub.Subscription
}

func (f *Feed) Close() {
	f.cancel()
	_ = f.sub.Close()
}

func (r *Relay) Subscribe(ctx context.Context, interviewID string) *Feed {
	ctx, cancel := context.WithCancel(ctx)
	sub := r.broker.Subscribe(ctx, interviewID, pubsub.PurposeSignaling)

	out := make(chan models.SignalingMessage, 64)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub.Messages():
				if !ok {
					return
				}
				var msg models.SignalingMessage
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					r.log.Warn("bad signaling payload", zap.String("interviewId", interviewID), zap.Error(err))
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return &Feed{C: out, cancel: cancel, sub: sub}
}
