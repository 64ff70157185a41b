package repositories

import (
	"context"
	"fmt"
	"testing"

	"github.com/IamSiddharthChoudhary/Assessly/internal/testhelpers"
)

func TestInsertAssignsIDAndTimestamp(t *testing.T) {
	repo := &ChatRepository{DB: testhelpers.SetupTestDB(t)}

	msg, err := repo.Insert(context.Background(), "iv-1", "user-a", "hello")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if msg.ID == "" {
		t.Fatalf("message has no server-assigned id")
	}
	if msg.CreatedAt.IsZero() {
		t.Fatalf("message has no timestamp")
	}
	if msg.InterviewID != "iv-1" || msg.SenderID != "user-a" || msg.Message != "hello" {
		t.Fatalf("unexpected message: %#v", msg)
	}
}

func TestTimestampsNeverRegress(t *testing.T) {
	repo := &ChatRepository{DB: testhelpers.SetupTestDB(t)}
	ctx := context.Background()

	// A tight burst is exactly when the wall clock can repeat a reading.
	prev, err := repo.Insert(ctx, "iv-1", "user-a", "m0")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	for i := 1; i < 50; i++ {
		msg, err := repo.Insert(ctx, "iv-1", "user-a", fmt.Sprintf("m%d", i))
		if err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
		if !msg.CreatedAt.After(prev.CreatedAt) {
			t.Fatalf("timestamp regressed at %d: %v then %v", i, prev.CreatedAt, msg.CreatedAt)
		}
		prev = msg
	}
}

func TestListByInterviewOrdersOldestFirst(t *testing.T) {
	repo := &ChatRepository{DB: testhelpers.SetupTestDB(t)}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := repo.Insert(ctx, "iv-1", "user-a", fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}
	if _, err := repo.Insert(ctx, "iv-other", "user-b", "noise"); err != nil {
		t.Fatalf("Insert noise: %v", err)
	}

	msgs, err := repo.ListByInterview(ctx, "iv-1")
	if err != nil {
		t.Fatalf("ListByInterview: %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	for i, msg := range msgs {
		if msg.Message != fmt.Sprintf("m%d", i) {
			t.Fatalf("history out of order at %d: %q", i, msg.Message)
		}
	}
}
