package session

import (
	"sync"
	"time"

	"github.com/IamSiddharthChoudhary/Assessly/internal/models"
)

// DebounceInterval is the quiet period a field write waits for. A burst of
// keystrokes to one field triggers at most one persistence write per interval,
// carrying the last value of the burst.
const DebounceInterval = time.Second

// fieldScheduler owns one timer per mutable session field. Fields debounce
// independently: rescheduling code never disturbs a pending notes write.
type fieldScheduler struct {
	mu      sync.Mutex
	delay   time.Duration
	flush   func(field models.SessionField, value string)
	timers  map[models.SessionField]*time.Timer
	pending map[models.SessionField]string
}

func newFieldScheduler(delay time.Duration, flush func(models.SessionField, string)) *fieldScheduler {
	return &fieldScheduler{
		delay:   delay,
		flush:   flush,
		timers:  make(map[models.SessionField]*time.Timer),
		pending: make(map[models.SessionField]string),
	}
}

// Schedule coalesces the write: the pending value is replaced and the field's
// timer restarted, so only the most recent value within the window survives.
func (s *fieldScheduler) Schedule(field models.SessionField, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[field] = value
	if t, ok := s.timers[field]; ok {
		t.Stop()
	}
	s.timers[field] = time.AfterFunc(s.delay, func() { s.fire(field) })
}

// FlushNow bypasses the debounce window and writes synchronously, discarding
// any pending timer for the field. Used for language changes, which must
// propagate immediately.
func (s *fieldScheduler) FlushNow(field models.SessionField, value string) {
	s.mu.Lock()
	if t, ok := s.timers[field]; ok {
		t.Stop()
		delete(s.timers, field)
	}
	delete(s.pending, field)
	s.mu.Unlock()

	s.flush(field, value)
}

// Cancel stops every pending timer without flushing. Called on teardown;
// unwritten values are lost by design (the baseline offers no shutdown
// durability beyond the last debounce cycle).
func (s *fieldScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for field, t := range s.timers {
		t.Stop()
		delete(s.timers, field)
		delete(s.pending, field)
	}
}

func (s *fieldScheduler) fire(field models.SessionField) {
	s.mu.Lock()
	value, ok := s.pending[field]
	if ok {
		delete(s.pending, field)
		delete(s.timers, field)
	}
	s.mu.Unlock()

	if ok {
		s.flush(field, value)
	}
}
