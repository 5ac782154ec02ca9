package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"trailhub/internal/apperr"
	"trailhub/internal/models"
	"trailhub/internal/session"
	"trailhub/internal/store"
)

// Auth groups account and session handlers.
type Auth struct {
	sessions  *session.Store
	userStore *store.UserStore
}

// NewAuth creates a new Auth handler group.
func NewAuth(sessions *session.Store, userStore *store.UserStore) *Auth {
	return &Auth{
		sessions:  sessions,
		userStore: userStore,
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Register creates a member account and signs it in.
func (a *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, "auth.register", &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := a.userStore.Create(r.Context(), req.Username, strings.ToLower(req.Email), req.Password, models.RoleMember)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("user registered", "user_id", user.ID, "username", user.Username)

	if err := a.startSession(w, r, user); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	// Login is a username or an email address.
	Login    string `json:"login" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

// Login checks credentials and starts a session.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, "auth.login", &req); err != nil {
		writeError(w, r, err)
		return
	}

	var (
		user *models.User
		err  error
	)
	if strings.Contains(req.Login, "@") {
		user, err = a.userStore.FindByEmail(r.Context(), req.Login)
	} else {
		user, err = a.userStore.FindByUsername(r.Context(), req.Login)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	if user == nil || !a.userStore.CheckPassword(user, req.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid username or password"})
		return
	}

	if err := a.startSession(w, r, user); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *Auth) startSession(w http.ResponseWriter, r *http.Request, user *models.User) error {
	_, err := a.sessions.Create(r.Context(), w, &session.Data{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	return err
}

// Logout destroys the session and clears the cookie.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Error("session destroy failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in user's account.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	user, err := a.userStore.FindByID(r.Context(), act.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, r, apperr.NotFound("auth.me", "account not found"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type profileRequest struct {
	FullName        string                 `json:"full_name" validate:"max=100"`
	Bio             string                 `json:"bio" validate:"max=1000"`
	ExperienceLevel models.ExperienceLevel `json:"experience_level" validate:"omitempty,oneof=beginner intermediate advanced expert"`
}

// UpdateProfile replaces the editable profile fields.
func (a *Auth) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if err := decode(w, r, "auth.update_profile", &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ExperienceLevel == "" {
		req.ExperienceLevel = models.ExperienceBeginner
	}

	user, err := a.userStore.UpdateProfile(r.Context(), act.ID,
		strings.TrimSpace(req.FullName), strings.TrimSpace(req.Bio), req.ExperienceLevel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, r, apperr.NotFound("auth.update_profile", "account not found"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}
