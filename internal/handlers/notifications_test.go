package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"trailhub/internal/models"
)

func TestNotifications_ScopedToRecipient(t *testing.T) {
	env := newTestEnv(t)
	alice := env.testUser(t, models.RoleMember)
	bob := env.testUser(t, models.RoleMember)

	// Seed one note for alice through the fanout.
	reply := &models.ReplyNode{ID: uuid.New(), ContainerID: uuid.New(), AuthorID: bob.ID, AuthorName: bob.Username}
	note := env.Notifications.fanout.OnReply(context.Background(), reply, alice.ID)
	if note == nil {
		t.Fatal("expected a notification for alice")
	}
	nid := note.ID.String()

	rec := httptest.NewRecorder()
	env.Notifications.MarkRead(rec, jsonRequest(t, http.MethodPost, "/", nil, sessionFor(bob), "id", nid))
	if rec.Code != http.StatusNotFound {
		t.Errorf("bob marking alice's note: status %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.Notifications.List(rec, jsonRequest(t, http.MethodGet, "/api/notifications?unread=true", nil, sessionFor(alice)))
	var list []models.Notification
	decodeBody(t, rec, &list)
	if len(list) != 1 || list[0].ID != note.ID {
		t.Fatalf("alice unread list = %+v", list)
	}

	rec = httptest.NewRecorder()
	env.Notifications.MarkRead(rec, jsonRequest(t, http.MethodPost, "/", nil, sessionFor(alice), "id", nid))
	if rec.Code != http.StatusNoContent {
		t.Errorf("mark read: status %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.Notifications.MarkAllRead(rec, jsonRequest(t, http.MethodPost, "/", nil, sessionFor(alice)))
	var changed map[string]int64
	decodeBody(t, rec, &changed)
	if changed["updated"] != 0 {
		t.Errorf("mark all after single read changed %d, want 0", changed["updated"])
	}
}

func TestNotifications_StreamWithoutLiveFeed(t *testing.T) {
	n := NewNotifications(nil, nil, nil)
	u := &models.User{ID: uuid.New(), Username: "walker", Role: models.RoleMember}

	rec := httptest.NewRecorder()
	n.Stream(rec, jsonRequest(t, http.MethodGet, "/api/notifications/stream", nil, sessionFor(u)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status %d, want 503", rec.Code)
	}
}

func TestNotifications_CheckOrigin(t *testing.T) {
	n := NewNotifications(nil, nil, []string{"https://trails.example.com"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", false},
		{"https://trails.example.com", true},
		{"https://evil.example.com", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/api/notifications/stream", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := n.checkOrigin(r); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
