// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"trailhub/internal/models"
	"trailhub/internal/notify"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Subscriber streams a user's live notifications.
type Subscriber interface {
	Subscribe(ctx context.Context, userID uuid.UUID) (<-chan models.Notification, error)
}

// Notifications groups the signed-in user's notification handlers.
type Notifications struct {
	fanout   *notify.Fanout
	live     Subscriber
	origins  []string
	upgrader websocket.Upgrader
}

// NewNotifications creates the Notifications handler group. live may be
// nil, which disables the websocket stream. origins lists the browser
// origins allowed to open it.
func NewNotifications(fanout *notify.Fanout, live Subscriber, origins []string) *Notifications {
	n := &Notifications{fanout: fanout, live: live, origins: origins}
	n.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      n.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return n
}

// List returns notifications, newest first. ?unread=true keeps unread ones.
func (n *Notifications) List(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	unread := r.URL.Query().Get("unread") == "true"
	items, err := n.fanout.List(r.Context(), act.ID, unread, queryInt(r, "limit", 50, 200))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// UnreadCount returns {"unread": n}.
func (n *Notifications) UnreadCount(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	count, err := n.fanout.UnreadCount(r.Context(), act.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

// MarkRead marks one notification read.
func (n *Notifications) MarkRead(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := n.fanout.MarkRead(r.Context(), id, act.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead marks every notification read and returns how many changed.
func (n *Notifications) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	changed, err := n.fanout.MarkAllRead(r.Context(), act.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": changed})
}

// Stream upgrades to a websocket and pushes each new notification as a
// JSON message until the client goes away.
func (n *Notifications) Stream(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	if n.live == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "live notifications are disabled"})
		return
	}

	conn, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client.
		slog.Warn("notification stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	feed, err := n.live.Subscribe(ctx, act.ID)
	if err != nil {
		slog.Error("notification subscribe failed", "user_id", act.ID, "error", err)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"))
		return
	}

	// The read loop only services pongs and notices the client closing.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case note, ok := <-feed:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(note); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// checkOrigin accepts browser origins from the CORS allow list. Requests
// without an Origin header are rejected.
func (n *Notifications) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	if slices.Contains(n.origins, "*") || slices.Contains(n.origins, origin) {
		return true
	}
	slog.Warn("notification stream rejected origin", "origin", origin)
	return false
}
