package session

import (
	"testing"

	"github.com/IamSiddharthChoudhary/Assessly/internal/models"
	"go.uber.org/zap"
)

func TestHubTracksParticipants(t *testing.T) {
	hub := NewHub()
	a := NewSynchronizer("iv-1", "user-a", models.Session{}, &fakeStore{}, &fakeBroker{}, zap.NewNop())
	b := NewSynchronizer("iv-1", "user-b", models.Session{}, &fakeStore{}, &fakeBroker{}, zap.NewNop())
	other := NewSynchronizer("iv-2", "user-c", models.Session{}, &fakeStore{}, &fakeBroker{}, zap.NewNop())

	hub.Join("iv-1", a)
	hub.Join("iv-1", b)
	hub.Join("iv-2", other)

	if got := hub.Participants("iv-1"); got != 2 {
		t.Fatalf("Participants(iv-1) = %d", got)
	}
	if got := hub.Participants("iv-2"); got != 1 {
		t.Fatalf("Participants(iv-2) = %d", got)
	}

	if left := hub.Leave("iv-1", a); left != 1 {
		t.Fatalf("Leave returned %d, want 1", left)
	}
	if left := hub.Leave("iv-1", b); left != 0 {
		t.Fatalf("Leave returned %d, want 0", left)
	}
	if got := hub.Participants("iv-1"); got != 0 {
		t.Fatalf("room not empty after last leave: %d", got)
	}

	// Leaving an unknown room is harmless.
	if left := hub.Leave("no-such-room", a); left != 0 {
		t.Fatalf("Leave on unknown room returned %d", left)
	}
}
