package validation

import (
	"errors"
	"strings"
	"testing"

	"trailhub/internal/apperr"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Rating   int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Level    string `json:"level" validate:"omitempty,oneof=beginner intermediate advanced expert"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		req     registerRequest
		wantErr string
	}{
		{
			name: "valid",
			req:  registerRequest{Username: "trail_runner", Email: "a@b.co", Password: "longenough"},
		},
		{
			name:    "missing username uses the json name",
			req:     registerRequest{Email: "a@b.co", Password: "longenough"},
			wantErr: "username is required",
		},
		{
			name:    "bad username characters",
			req:     registerRequest{Username: "no spaces", Email: "a@b.co", Password: "longenough"},
			wantErr: "username may only contain",
		},
		{
			name:    "short password",
			req:     registerRequest{Username: "abc", Email: "a@b.co", Password: "short"},
			wantErr: "password must be at least 8 characters",
		},
		{
			name:    "rating out of range",
			req:     registerRequest{Username: "abc", Email: "a@b.co", Password: "longenough", Rating: 6},
			wantErr: "rating must be less than or equal to 5",
		},
		{
			name:    "unknown level",
			req:     registerRequest{Username: "abc", Email: "a@b.co", Password: "longenough", Level: "guru"},
			wantErr: "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct("test", &tt.req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !strings.Contains(apperr.Message(err), tt.wantErr) {
				t.Errorf("message %q does not contain %q", apperr.Message(err), tt.wantErr)
			}
		})
	}
}

func TestStructReportsEveryField(t *testing.T) {
	err := Struct("test", &registerRequest{})
	msg := apperr.Message(err)
	for _, field := range []string{"username", "email", "password"} {
		if !strings.Contains(msg, field) {
			t.Errorf("message %q does not mention %s", msg, field)
		}
	}
}
