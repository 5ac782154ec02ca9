package handlers

import (
	"log/slog"
	"net/http"

	"trailhub/internal/models"
	"trailhub/internal/store"
)

// Admin groups account administration handlers. Routes are gated on the
// users/manage capability.
type Admin struct {
	userStore *store.UserStore
}

// NewAdmin creates a new Admin handler group.
func NewAdmin(userStore *store.UserStore) *Admin {
	return &Admin{userStore: userStore}
}

type roleRequest struct {
	Role models.Role `json:"role" validate:"required,oneof=member moderator admin"`
}

// SetRole changes a user's role. It takes effect at their next sign-in.
func (a *Admin) SetRole(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req roleRequest
	if err := decode(w, r, "admin.set_role", &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.userStore.SetRole(r.Context(), id, req.Role); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("user role changed", "user_id", id, "role", req.Role, "actor_id", act.ID)

	user, err := a.userStore.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
