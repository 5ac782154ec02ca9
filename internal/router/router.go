// Package router sets up all HTTP routes and middleware chains for the
// trailhub API. Reads are public; writes and everything under /api/me
// require a session.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trailhub/internal/guard"
	"trailhub/internal/handlers"
	"trailhub/internal/middleware"
	"trailhub/internal/session"
)

// Deps carries everything the router wires together.
type Deps struct {
	Sessions     *session.Store
	Policy       *guard.Policy
	CORSOrigins  []string
	LoginLimiter *middleware.RateLimiter
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only set it when a reverse proxy overwrites those headers.
	TrustProxy bool

	Auth          *handlers.Auth
	Admin         *handlers.Admin
	Catalog       *handlers.Catalog
	Forum         *handlers.Forum
	Chat          *handlers.Chat
	Messaging     *handlers.Messaging
	Notifications *handlers.Notifications
	Social        *handlers.Social
	Tracking      *handlers.Tracking
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	if d.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.LoadSession(d.Sessions))

	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Accounts.
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if d.LoginLimiter != nil {
					r.Use(d.LoginLimiter.Middleware)
				}
				r.Post("/register", d.Auth.Register)
				r.Post("/login", d.Auth.Login)
			})
			r.Post("/logout", d.Auth.Logout)
		})

		// Catalog reads.
		r.Get("/parks", d.Catalog.Parks)
		r.Get("/parks/{code}", d.Catalog.Park)
		r.Get("/trails", d.Catalog.Trails)
		r.Get("/trails/{id}", d.Catalog.Trail)
		r.Get("/trails/{id}/reviews", d.Social.TrailReviews)
		r.Get("/trails/{id}/conditions", d.Social.TrailConditions)
		r.Get("/trails/{id}/photos", d.Social.TrailPhotos)
		r.Get("/trails/{id}/features", d.Social.TrailFeatures)
		r.Get("/tags", d.Catalog.Tags)
		r.Get("/catalog/stats", d.Catalog.Stats)

		// Forum reads.
		r.Get("/forum/categories", d.Forum.Categories)
		r.Get("/forum/threads", d.Forum.Threads)
		r.Get("/forum/threads/{id}", d.Forum.Thread)
		r.Get("/forum/posts/{id}/revisions", d.Forum.PostRevisions)

		// Chat reads.
		r.Get("/chat/rooms", d.Chat.Rooms)
		r.Get("/chat/rooms/{slug}/messages", d.Chat.Messages)

		// Everything below acts as the signed-in user.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/me", d.Auth.Me)
			r.Put("/me/profile", d.Auth.UpdateProfile)
			r.Get("/me/saved-trails", d.Social.SavedTrails)
			r.Get("/me/photos", d.Social.MyPhotos)

			r.Post("/trails/{id}/tags", d.Catalog.TagTrail)
			r.Put("/trails/{id}/save", d.Social.SaveTrail)
			r.Delete("/trails/{id}/save", d.Social.UnsaveTrail)
			r.Post("/trails/{id}/reviews", d.Social.CreateReview)
			r.Post("/trails/{id}/conditions", d.Social.ReportCondition)
			r.Post("/trails/{id}/features", d.Social.CreateFeature)

			r.Put("/reviews/{id}", d.Social.UpdateReview)
			r.Delete("/reviews/{id}", d.Social.DeleteReview)
			r.Delete("/conditions/{id}", d.Social.DeleteCondition)
			r.Put("/features/{id}", d.Social.UpdateFeature)
			r.Delete("/features/{id}", d.Social.DeleteFeature)

			r.Post("/photos", d.Social.UploadPhoto)
			r.Delete("/photos/{id}", d.Social.DeletePhoto)

			r.Post("/forum/threads", d.Forum.CreateThread)
			r.Put("/forum/threads/{id}", d.Forum.UpdateThread)
			r.Delete("/forum/threads/{id}", d.Forum.DeleteThread)
			r.Post("/forum/threads/{id}/lock", d.Forum.ToggleLock)
			r.Post("/forum/threads/{id}/pin", d.Forum.TogglePin)
			r.Post("/forum/threads/{id}/posts", d.Forum.CreatePost)
			r.Put("/forum/posts/{id}", d.Forum.UpdatePost)
			r.Delete("/forum/posts/{id}", d.Forum.DeletePost)
			r.Post("/forum/posts/{id}/photos", d.Social.UploadPostPhoto)

			r.Post("/chat/rooms", d.Chat.CreateRoom)
			r.Post("/chat/rooms/{slug}/messages", d.Chat.Post)
			r.Put("/chat/messages/{id}", d.Chat.UpdateMessage)
			r.Delete("/chat/messages/{id}", d.Chat.DeleteMessage)

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", d.Messaging.Conversations)
				r.Post("/", d.Messaging.CreateConversation)
				r.Get("/{id}", d.Messaging.Conversation)
				r.Post("/{id}/participants", d.Messaging.AddParticipant)
				r.Post("/{id}/leave", d.Messaging.Leave)
				r.Get("/{id}/messages", d.Messaging.Messages)
				r.Post("/{id}/messages", d.Messaging.Send)
				r.Post("/{id}/read", d.Messaging.MarkRead)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", d.Notifications.List)
				r.Get("/unread-count", d.Notifications.UnreadCount)
				r.Get("/stream", d.Notifications.Stream)
				r.Post("/read-all", d.Notifications.MarkAllRead)
				r.Post("/{id}/read", d.Notifications.MarkRead)
			})

			r.Route("/hikes", func(r chi.Router) {
				r.Get("/", d.Tracking.Hikes)
				r.Post("/", d.Tracking.StartHike)
				r.Get("/active", d.Tracking.ActiveHikes)
				r.Get("/stats", d.Tracking.Stats)
				r.Get("/{id}", d.Tracking.Hike)
				r.Post("/{id}/complete", d.Tracking.CompleteHike)
				r.Delete("/{id}", d.Tracking.DeleteHike)
				r.Post("/{id}/tracks", d.Tracking.StartTrack)
			})

			r.Route("/tracks/{id}", func(r chi.Router) {
				r.Get("/", d.Tracking.Track)
				r.Get("/points", d.Tracking.Points)
				r.Post("/points", d.Tracking.AddPoint)
				r.Post("/stop", d.Tracking.StopTrack)
			})

			// Administration, gated on policy capabilities.
			r.With(middleware.RequireCapability(d.Policy, guard.ObjSyncRuns, guard.ActRead)).
				Get("/catalog/sync-runs", d.Catalog.SyncRuns)
			r.With(middleware.RequireCapability(d.Policy, guard.ObjUsers, guard.ActManage)).
				Put("/admin/users/{id}/role", d.Admin.SetRole)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
