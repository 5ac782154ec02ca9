package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestKindsMatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create post: %w", Locked("reply.create", "thread is locked"))

	if !errors.Is(err, ErrLocked) {
		t.Fatal("expected wrapped error to match ErrLocked")
	}
	if errors.Is(err, ErrForbidden) {
		t.Fatal("locked error must not match ErrForbidden")
	}
	if got := Message(err); got != "thread is locked" {
		t.Errorf("Message = %q, want %q", got, "thread is locked")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", Validation("op", "bad"), http.StatusBadRequest},
		{"not found", NotFound("op", "gone"), http.StatusNotFound},
		{"forbidden", Forbidden("op", "no"), http.StatusForbidden},
		{"locked", Locked("op", "closed"), http.StatusLocked},
		{"conflict", Conflict("op", "dup"), http.StatusConflict},
		{"upstream", Upstream("nps", errors.New("timeout")), http.StatusBadGateway},
		{"bare sentinel", ErrNotFound, http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMessageHidesUnknownErrors(t *testing.T) {
	if got := Message(errors.New("pq: connection refused")); got != "internal server error" {
		t.Errorf("Message = %q", got)
	}
}

func TestUpstreamUnwraps(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Upstream("ridb", cause)
	if !errors.Is(err, cause) {
		t.Error("expected Upstream to unwrap to its cause")
	}
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Error("expected Upstream to match ErrUpstreamUnavailable")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !IsUniqueViolation(err) {
		t.Error("expected 23505 to be a unique violation")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("23503 is not a unique violation")
	}
	if !IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("expected 23503 to be a foreign key violation")
	}
}
