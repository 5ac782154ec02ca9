package store

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"trailhub/internal/models"
)

func TestNotificationStoreScopedByRecipient(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewNotificationStore(db)
	actor, a, b := testUser(t, db), testUser(t, db), testUser(t, db)

	ref := models.MessageRef(uuid.New())
	na, err := s.Create(ctx, &models.Notification{
		RecipientID: a.ID, ActorID: actor.ID, Type: models.NotificationMessage, Ref: ref, Text: "hi",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if na.Ref != ref || na.IsRead {
		t.Errorf("unexpected notification: %+v", na)
	}
	if _, err := s.Create(ctx, &models.Notification{
		RecipientID: b.ID, ActorID: actor.ID, Type: models.NotificationReply, Ref: models.ReplyRef(uuid.New()), Text: "re",
	}); err != nil {
		t.Fatal(err)
	}

	// b cannot mark a's notification.
	ok, err := s.MarkRead(ctx, na.ID, b.ID)
	if err != nil || ok {
		t.Fatalf("cross-recipient MarkRead: ok=%v err=%v", ok, err)
	}
	if n, _ := s.UnreadCount(ctx, a.ID); n != 1 {
		t.Errorf("a unread = %d, want 1", n)
	}

	ok, err = s.MarkRead(ctx, na.ID, a.ID)
	if err != nil || !ok {
		t.Fatalf("MarkRead: ok=%v err=%v", ok, err)
	}
	unread, err := s.List(ctx, a.ID, true, 10)
	if err != nil || len(unread) != 0 {
		t.Errorf("unread list: %d, %v", len(unread), err)
	}

	changed, err := s.MarkAllRead(ctx, b.ID)
	if err != nil || changed != 1 {
		t.Errorf("MarkAllRead: %d, %v", changed, err)
	}
}
