package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"trailhub/internal/guard"
	"trailhub/internal/models"
	"trailhub/internal/session"
)

// newTestSession creates a session.Data value suitable for testing.
func newTestSession(role models.Role) *session.Data {
	return &session.Data{
		UserID:   uuid.New(),
		Username: "ridgewalker",
		Role:     role,
	}
}

// ctxWithSession returns a context carrying the given session data using
// the same context key the middleware uses. This allows tests to simulate
// the state after LoadSession has run without needing a real Valkey store.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, SessionKey, data)
}

// okHandler is a simple handler that records whether it was invoked.
func okHandler() (http.Handler, *bool) {
	var called bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	return h, &called
}

func testPolicy(t *testing.T) *guard.Policy {
	t.Helper()
	p, err := guard.NewPolicy()
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	return p
}

func TestSessionFromCtx(t *testing.T) {
	t.Run("returns session when present", func(t *testing.T) {
		sess := newTestSession(models.RoleMember)
		got := SessionFromCtx(ctxWithSession(context.Background(), sess))
		if got == nil {
			t.Fatal("expected non-nil session, got nil")
		}
		if got.Username != sess.Username || got.Role != sess.Role {
			t.Errorf("got %+v, want %+v", got, sess)
		}
	})

	t.Run("returns nil when not present", func(t *testing.T) {
		if got := SessionFromCtx(context.Background()); got != nil {
			t.Errorf("expected nil session, got %+v", got)
		}
	})

	t.Run("returns nil for wrong type in context", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), SessionKey, "not-a-session")
		if got := SessionFromCtx(ctx); got != nil {
			t.Errorf("expected nil for wrong type, got %+v", got)
		}
	})
}

func TestActorFromCtx(t *testing.T) {
	sess := newTestSession(models.RoleModerator)
	actor, ok := ActorFromCtx(ctxWithSession(context.Background(), sess))
	if !ok {
		t.Fatal("expected an actor")
	}
	if actor.ID != sess.UserID || actor.Username != sess.Username || actor.Role != models.RoleModerator {
		t.Errorf("actor = %+v, session = %+v", actor, sess)
	}

	if _, ok := ActorFromCtx(context.Background()); ok {
		t.Error("anonymous context must not yield an actor")
	}
}

func TestRequireAuth(t *testing.T) {
	t.Run("rejects anonymous requests with JSON 401", func(t *testing.T) {
		inner, called := okHandler()
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		rr := httptest.NewRecorder()
		RequireAuth(inner).ServeHTTP(rr, req)

		if *called {
			t.Error("next handler must not run")
		}
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d, want 401", rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type: got %q", ct)
		}
		if !strings.Contains(rr.Body.String(), `"error"`) {
			t.Errorf("body: got %q, want an error object", rr.Body.String())
		}
	})

	t.Run("passes authenticated requests", func(t *testing.T) {
		inner, called := okHandler()
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req = req.WithContext(ctxWithSession(req.Context(), newTestSession(models.RoleMember)))
		rr := httptest.NewRecorder()
		RequireAuth(inner).ServeHTTP(rr, req)

		if !*called || rr.Code != http.StatusOK {
			t.Errorf("called=%v status=%d, want handler to run with 200", *called, rr.Code)
		}
	})
}

func TestRequireCapability(t *testing.T) {
	policy := testPolicy(t)

	tests := []struct {
		name       string
		sess       *session.Data
		wantStatus int
	}{
		{"admin may read sync runs", newTestSession(models.RoleAdmin), http.StatusOK},
		{"moderator may not", newTestSession(models.RoleModerator), http.StatusForbidden},
		{"member may not", newTestSession(models.RoleMember), http.StatusForbidden},
		{"anonymous may not", nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner, called := okHandler()
			req := httptest.NewRequest(http.MethodGet, "/api/catalog/sync-runs", nil)
			if tt.sess != nil {
				req = req.WithContext(ctxWithSession(req.Context(), tt.sess))
			}
			rr := httptest.NewRecorder()
			RequireCapability(policy, guard.ObjSyncRuns, guard.ActRead)(inner).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rr.Code, tt.wantStatus)
			}
			if *called != (tt.wantStatus == http.StatusOK) {
				t.Errorf("handler called = %v", *called)
			}
		})
	}
}
