package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/IamSiddharthChoudhary/Assessly/internal/models"
	"github.com/IamSiddharthChoudhary/Assessly/internal/pubsub"
)

// Persister is the slice of the session repository the synchronizer needs.
type Persister interface {
	UpdateField(ctx context.Context, interviewID string, field models.SessionField, value string) error
}

// Publisher fans a persisted update out to the room's session channel.
type Publisher interface {
	Publish(ctx context.Context, interviewID string, purpose pubsub.Purpose, v any) error
}

// Synchronizer keeps one participant's working copy of the shared session
// document and mediates every mutation through the debounced-write path.
// Conflict policy is last-writer-wins per field: concurrent edits to
// different fields never conflict, and simultaneous edits to the same field
// resolve by persistence write order, silently dropping the loser.
type Synchronizer struct {
	interviewID   string
	participantID string

	mu       sync.Mutex
	code     string
	language models.Language
	notes    string

	sched  *fieldScheduler
	store  Persister
	broker Publisher
	log    *zap.Logger
}

func NewSynchronizer(interviewID, participantID string, snap models.Session, store Persister, broker Publisher, log *zap.Logger) *Synchronizer {
	s := &Synchronizer{
		interviewID:   interviewID,
		participantID: participantID,
		code:          snap.CodeContent,
		language:      snap.Language,
		notes:         snap.Notes,
		store:         store,
		broker:        broker,
		log:           log,
	}
	s.sched = newFieldScheduler(DebounceInterval, s.persist)
	return s
}

// ApplyLocalEdit updates the working copy immediately (so local echo is
// instant) and schedules the persistence write. Language changes skip the
// debounce: they are infrequent and the syntax/execution target must follow
// as soon as possible.
func (s *Synchronizer) ApplyLocalEdit(field models.SessionField, value string) {
	s.mu.Lock()
	switch field {
	case models.FieldCode:
		s.code = value
	case models.FieldLanguage:
		s.language = models.Language(value)
	case models.FieldNotes:
		s.notes = value
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if field == models.FieldLanguage {
		s.sched.FlushNow(field, value)
		return
	}
	s.sched.Schedule(field, value)
}

// persist runs on debounce expiry (or immediately for language). A failed
// write is logged and retried only by the next local edit to the field; there
// is no background retry loop.
func (s *Synchronizer) persist(field models.SessionField, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.UpdateField(ctx, s.interviewID, field, value); err != nil {
		s.log.Warn("session write failed, will retry on next edit",
			zap.String("interviewId", s.interviewID),
			zap.String("field", string(field)),
			zap.Error(err))
		return
	}

	update := models.SessionUpdate{
		InterviewID: s.interviewID,
		Field:       field,
		Value:       value,
		SenderID:    s.participantID,
	}
	if err := s.broker.Publish(ctx, s.interviewID, pubsub.PurposeSession, update); err != nil {
		s.log.Warn("session update publish failed",
			zap.String("interviewId", s.interviewID),
			zap.String("field", string(field)),
			zap.Error(err))
	}
}

// OnRemoteUpdate applies a change reported by the persistence layer. The
// value is taken only when it differs from the working copy, which breaks
// echo loops: a participant never re-applies (or re-broadcasts) a value it
// just received or produced. Returns whether the working copy changed.
func (s *Synchronizer) OnRemoteUpdate(ev models.SessionUpdate) bool {
	if ev.SenderID == s.participantID {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Field {
	case models.FieldCode:
		if s.code == ev.Value {
			return false
		}
		s.code = ev.Value
	case models.FieldLanguage:
		if string(s.language) == ev.Value {
			return false
		}
		s.language = models.Language(ev.Value)
	case models.FieldNotes:
		if s.notes == ev.Value {
			return false
		}
		s.notes = ev.Value
	default:
		return false
	}
	return true
}

// Snapshot returns the current working copy.
func (s *Synchronizer) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SessionSnapshot{
		InterviewID: s.interviewID,
		CodeContent: s.code,
		Language:    s.language,
		Notes:       s.notes,
	}
}

// Close stops pending debounce timers. Unflushed edits are dropped.
func (s *Synchronizer) Close() {
	s.sched.Cancel()
}
