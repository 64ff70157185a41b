package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/IamSiddharthChoudhary/Assessly/internal/models"
	"github.com/IamSiddharthChoudhary/Assessly/internal/pubsub"
	"github.com/IamSiddharthChoudhary/Assessly/internal/repositories"
)

var ErrEmptyMessage = errors.New("chat message must not be empty")

// Stream is the append-only chat log of a room: every send is persisted with
// a server-assigned timestamp, then fanned out on the room's chat channel.
type Stream struct {
	repo   *repositories.ChatRepository
	broker *pubsub.Broker
	log    *zap.Logger
}

func NewStream(repo *repositories.ChatRepository, broker *pubsub.Broker, log *zap.Logger) *Stream {
	return &Stream{repo: repo, broker: broker, log: log}
}

func (s *Stream) Send(ctx context.Context, interviewID, senderID, text string) (*models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	msg, err := s.repo.Insert(ctx, interviewID, senderID, text)
	if err != nil {
		return nil, err
	}
	if err := s.broker.Publish(ctx, interviewID, pubsub.PurposeChat, msg); err != nil {
		// The row is durable; subscribers that miss the live delivery pick it
		// up from the history fetch on their next attach.
		s.log.Warn("chat publish failed", zap.String("interviewId", interviewID), zap.Error(err))
	}
	return msg, nil
}

// Feed delivers the room's messages in order: the full history first, then
// live messages. A message seen via the history fetch is suppressed when it
// arrives again via live delivery.
type Feed struct {
	C      <-chan models.ChatMessage
	cancel context.CancelFunc
	sub    *pubsub.Subscription
}

func (f *Feed) Close() {
	f.cancel()
	_ = f.sub.Close()
}

// Subscribe attaches to a room's chat. The live subscription is opened before
// the history fetch so no message can fall between the two.
func (s *Stream) Subscribe(ctx context.Context, interviewID string) (*Feed, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := s.broker.Subscribe(ctx, interviewID, pubsub.PurposeChat)

	history, err := s.repo.ListByInterview(ctx, interviewID)
	if err != nil {
		cancel()
		_ = sub.Close()
		return nil, err
	}

	out := make(chan models.ChatMessage, 64)
	go func() {
		defer close(out)

		seen := make(map[string]struct{}, len(history))
		for _, msg := range history {
			seen[msg.ID] = struct{}{}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub.Messages():
				if !ok {
					return
				}
				var msg models.ChatMessage
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					s.log.Warn("bad chat payload", zap.String("interviewId", interviewID), zap.Error(err))
					continue
				}
				if _, dup := seen[msg.ID]; dup {
					continue
				}
				seen[msg.ID] = struct{}{}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return &Feed{C: out, cancel: cancel, sub: sub}, nil
}
