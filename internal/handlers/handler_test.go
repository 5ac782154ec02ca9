// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL or Valkey are unavailable.
package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"trailhub/internal/cache"
	"trailhub/internal/database"
	"trailhub/internal/forum"
	"trailhub/internal/guard"
	"trailhub/internal/messaging"
	"trailhub/internal/middleware"
	"trailhub/internal/models"
	"trailhub/internal/notify"
	"trailhub/internal/session"
	"trailhub/internal/social"
	"trailhub/internal/store"
	"trailhub/internal/threads"
	"trailhub/internal/tracking"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "trailhub")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "trailhub")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		// Clean up test session and cache keys.
		for _, pattern := range []string{"session:*", "catalog:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB            *sql.DB
	Valkey        *redis.Client
	Sessions      *session.Store
	UserStore     *store.UserStore
	Auth          *Auth
	Catalog       *Catalog
	Forum         *Forum
	Chat          *Chat
	Messaging     *Messaging
	Notifications *Notifications
	Social        *Social
	Objects       *memObjects
	Tracking      *Tracking
}

// newTestEnv creates a complete test environment with all handler dependencies.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	policy, err := guard.NewPolicy()
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	sessions := session.NewStore(vk, false)
	userStore := store.NewUserStore(db)
	fanout := notify.New(store.NewNotificationStore(db), notify.NewRedisPublisher(vk), logger)
	objects := &memObjects{objects: map[string][]byte{}}

	return &testEnv{
		DB:        db,
		Valkey:    vk,
		Sessions:  sessions,
		UserStore: userStore,
		Auth:      NewAuth(sessions, userStore),
		Catalog: NewCatalog(store.NewCatalogStore(db), store.NewSyncRunStore(db),
			cache.NewCatalogCache(vk, time.Minute)),
		Forum: NewForum(forum.NewService(db, policy, fanout, logger)),
		Chat: NewChat(store.NewChatRoomStore(db), threads.NewStore(db, threads.ChatMessages),
			policy, fanout),
		Messaging:     NewMessaging(messaging.NewService(db, fanout, logger)),
		Notifications: NewNotifications(fanout, nil, nil),
		Social: NewSocial(social.NewService(store.NewSocialStore(db), store.NewPhotoStore(db),
			objects, policy, logger), 10<<20),
		Objects:       objects,
		Tracking:      NewTracking(tracking.NewService(store.NewTrackingStore(db), logger)),
	}
}

// memObjects is an in-memory object store for photo uploads.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memObjects) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) FileURL(key string) string { return "http://objects.test/" + key }

// testUser creates a member with the given role and removes it afterwards.
func (e *testEnv) testUser(t *testing.T, role models.Role) *models.User {
	t.Helper()
	name := "h-" + uuid.NewString()[:8]
	u, err := e.UserStore.Create(context.Background(), name, name+"@handlers.test", "password123", models.RoleMember)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if role != models.RoleMember {
		if err := e.UserStore.SetRole(context.Background(), u.ID, role); err != nil {
			t.Fatalf("set role: %v", err)
		}
		u.Role = role
	}
	t.Cleanup(func() { e.DB.Exec("DELETE FROM users WHERE id = $1", u.ID) })
	return u
}

// sessionFor builds the session data a signed-in user would carry.
func sessionFor(u *models.User) *session.Data {
	return &session.Data{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// jsonRequest builds a request with a JSON body, optional session and chi
// URL parameters given as key/value pairs.
func jsonRequest(t *testing.T, method, target string, body any, sess *session.Data, params ...string) *http.Request {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			rctx.URLParams.Add(params[i], params[i+1])
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	if sess != nil {
		ctx = ctxWithSession(ctx, sess)
	}
	return req.WithContext(ctx)
}

// decodeBody decodes a recorder's JSON body into v.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
