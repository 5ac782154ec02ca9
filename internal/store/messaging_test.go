package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"trailhub/internal/models"
)

// newConversation creates a conversation owned by creator with the given
// participants, committing the transaction.
func newConversation(t *testing.T, db *sql.DB, s *MessagingStore, creator uuid.UUID, others ...uuid.UUID) *models.Conversation {
	t.Helper()
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	c, err := s.CreateConversationTx(ctx, tx, "trip", len(others) > 1, creator)
	if err != nil {
		t.Fatalf("CreateConversationTx: %v", err)
	}
	for _, id := range append([]uuid.UUID{creator}, others...) {
		if err := s.AddParticipantTx(ctx, tx, c.ID, id); err != nil {
			t.Fatalf("AddParticipantTx: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	return c
}

func sendMessage(t *testing.T, db *sql.DB, s *MessagingStore, convID, sender uuid.UUID, body string) *models.Message {
	t.Helper()
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	m, err := s.CreateMessageTx(ctx, tx, convID, sender, body)
	if err != nil {
		t.Fatalf("CreateMessageTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestMessagingScopedToParticipants(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewMessagingStore(db)
	a, b, outsider := testUser(t, db), testUser(t, db), testUser(t, db)

	conv := newConversation(t, db, s, a.ID, b.ID)

	if m := sendMessage(t, db, s, conv.ID, outsider.ID, "let me in"); m != nil {
		t.Fatal("non-participant must not be able to send")
	}
	if m := sendMessage(t, db, s, conv.ID, a.ID, "trailhead at 7?"); m == nil {
		t.Fatal("participant send returned nil")
	}

	if c, err := s.FindConversation(ctx, conv.ID, outsider.ID); err != nil || c != nil {
		t.Fatalf("outsider FindConversation: %v, %v", c, err)
	}
	if _, ok, err := s.Messages(ctx, conv.ID, outsider.ID, time.Time{}, 10); err != nil || ok {
		t.Fatalf("outsider Messages: ok=%v err=%v", ok, err)
	}

	seen, err := s.FindConversation(ctx, conv.ID, b.ID)
	if err != nil || seen == nil {
		t.Fatalf("FindConversation: %v, %v", seen, err)
	}
	if seen.UnreadCount != 1 || len(seen.Participants) != 2 {
		t.Errorf("unread=%d participants=%d, want 1 and 2", seen.UnreadCount, len(seen.Participants))
	}

	ok, err := s.MarkRead(ctx, conv.ID, b.ID)
	if err != nil || !ok {
		t.Fatalf("MarkRead: %v, %v", ok, err)
	}
	list, err := s.ListConversations(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range list {
		if c.ID == conv.ID && c.UnreadCount != 0 {
			t.Errorf("unread after MarkRead = %d", c.UnreadCount)
		}
	}

	msgs, ok, err := s.Messages(ctx, conv.ID, b.ID, time.Time{}, 10)
	if err != nil || !ok || len(msgs) != 1 || msgs[0].SenderName != a.Username {
		t.Fatalf("Messages: %+v ok=%v err=%v", msgs, ok, err)
	}
}

func TestMessagingLeaveRevokesAccess(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewMessagingStore(db)
	a, b := testUser(t, db), testUser(t, db)
	conv := newConversation(t, db, s, a.ID, b.ID)

	left, err := s.Leave(ctx, conv.ID, b.ID)
	if err != nil || !left {
		t.Fatalf("Leave: %v, %v", left, err)
	}
	if m := sendMessage(t, db, s, conv.ID, b.ID, "still here?"); m != nil {
		t.Error("inactive participant must not send")
	}

	recipients, err := NewNotificationStore(db).ActiveRecipients(ctx, conv.ID, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recipients) != 0 {
		t.Errorf("inactive participant still a recipient: %v", recipients)
	}
}
