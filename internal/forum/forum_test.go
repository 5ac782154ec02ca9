package forum

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"trailhub/internal/apperr"
	"trailhub/internal/database"
	"trailhub/internal/guard"
	"trailhub/internal/models"
	"trailhub/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := "postgres://" + envOr("POSTGRES_USER", "trailhub") + ":" + envOr("POSTGRES_PASSWORD", "changeme") +
		"@" + envOr("POSTGRES_HOST", "localhost") + ":" + envOr("POSTGRES_PORT", "5432") +
		"/" + envOr("POSTGRES_DB", "trailhub") + "?sslmode=disable"
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

func createActor(t *testing.T, db *sql.DB, role models.Role) models.Actor {
	t.Helper()
	name := "forum-" + uuid.NewString()[:8]
	var id uuid.UUID
	if err := db.QueryRow(`
		INSERT INTO users (username, email, password_hash, role) VALUES ($1, $2, 'x', $3) RETURNING id
	`, name, name+"@test.local", role).Scan(&id); err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM users WHERE id = $1", id) })
	return models.Actor{ID: id, Username: name, Role: role}
}

func createCategory(t *testing.T, db *sql.DB) int {
	t.Helper()
	var id int
	if err := db.QueryRow(`INSERT INTO forum_categories (name) VALUES ($1) RETURNING id`,
		"cat-"+uuid.NewString()[:8]).Scan(&id); err != nil {
		t.Fatalf("create category: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM forum_categories WHERE id = $1", id) })
	return id
}

type replyRecorder struct {
	calls []uuid.UUID
}

func (r *replyRecorder) OnReply(_ context.Context, _ *models.ReplyNode, parentAuthorID uuid.UUID) *models.Notification {
	r.calls = append(r.calls, parentAuthorID)
	return nil
}

func newService(t *testing.T, db *sql.DB, notifier ReplyNotifier) *Service {
	t.Helper()
	policy, err := guard.NewPolicy()
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	return NewService(db, policy, notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestThreadLifecycle(t *testing.T) {
	db := testDB(t)
	svc := newService(t, db, nil)
	ctx := context.Background()

	owner := createActor(t, db, models.RoleMember)
	cat := createCategory(t, db)

	th, err := svc.CreateThread(ctx, owner, cat, "T", "hello")
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if len(th.Posts) != 1 || th.ViewCount != 0 {
		t.Fatalf("new thread: posts=%d views=%d, want 1 and 0", len(th.Posts), th.ViewCount)
	}

	for i := 1; i <= 2; i++ {
		n, err := svc.RecordView(ctx, th.ID)
		if err != nil {
			t.Fatalf("RecordView: %v", err)
		}
		if n != i {
			t.Errorf("view count = %d, want %d", n, i)
		}
	}

	st, err := svc.ToggleLock(ctx, th.ID, owner)
	if err != nil {
		t.Fatalf("ToggleLock: %v", err)
	}
	if !st.Locked || st.Pinned {
		t.Fatalf("state = %+v, want locked and unpinned", st)
	}

	_, err = svc.CreatePost(ctx, th.ID, owner, "more", nil)
	if !errors.Is(err, apperr.ErrLocked) {
		t.Fatalf("post to locked thread: err = %v, want ErrLocked", err)
	}

	st, err = svc.ToggleLock(ctx, th.ID, owner)
	if err != nil || st.Locked {
		t.Fatalf("unlock: state=%+v err=%v", st, err)
	}
	if _, err := svc.CreatePost(ctx, th.ID, owner, "more", nil); err != nil {
		t.Fatalf("post after unlock: %v", err)
	}

	got, err := svc.GetThread(ctx, th.ID)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if got.ViewCount != 3 {
		t.Errorf("views after GetThread = %d, want 3", got.ViewCount)
	}
	if len(got.Posts) != 2 || got.Posts[0].Body != "hello" {
		t.Errorf("expected opening post first among 2 roots, got %d", len(got.Posts))
	}
}

func TestCreateThread_Validation(t *testing.T) {
	db := testDB(t)
	svc := newService(t, db, nil)
	ctx := context.Background()
	actor := createActor(t, db, models.RoleMember)
	cat := createCategory(t, db)

	if _, err := svc.CreateThread(ctx, actor, cat, "  ", "body"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty title: err = %v", err)
	}
	if _, err := svc.CreateThread(ctx, actor, cat, "Title", " "); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty body: err = %v", err)
	}
	if _, err := svc.CreateThread(ctx, actor, -1, "Title", "body"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown category: err = %v", err)
	}
}

func TestToggle_Privileges(t *testing.T) {
	db := testDB(t)
	svc := newService(t, db, nil)
	ctx := context.Background()

	owner := createActor(t, db, models.RoleMember)
	stranger := createActor(t, db, models.RoleMember)
	mod := createActor(t, db, models.RoleModerator)
	cat := createCategory(t, db)

	th, err := svc.CreateThread(ctx, owner, cat, "Pinned?", "body")
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}

	if _, err := svc.TogglePin(ctx, th.ID, stranger); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("stranger pin: err = %v, want ErrForbidden", err)
	}
	st, err := svc.TogglePin(ctx, th.ID, mod)
	if err != nil || !st.Pinned {
		t.Fatalf("moderator pin: state=%+v err=%v", st, err)
	}
	if _, err := svc.ToggleLock(ctx, uuid.New(), mod); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing thread: err = %v, want ErrNotFound", err)
	}

	list, err := svc.ListThreads(ctx, &cat, 10, 0)
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(list) != 1 || !list[0].IsPinned {
		t.Errorf("ListThreads = %+v", list)
	}
}

func TestThreadOwnerOperations(t *testing.T) {
	db := testDB(t)
	svc := newService(t, db, nil)
	ctx := context.Background()

	owner := createActor(t, db, models.RoleMember)
	other := createActor(t, db, models.RoleAdmin)
	cat := createCategory(t, db)

	th, err := svc.CreateThread(ctx, owner, cat, "Old", "body")
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}

	if _, err := svc.UpdateThreadTitle(ctx, th.ID, other, "Hijack"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("non-owner rename: err = %v, want ErrForbidden", err)
	}
	renamed, err := svc.UpdateThreadTitle(ctx, th.ID, owner, "New")
	if err != nil || renamed.Title != "New" {
		t.Fatalf("rename: %+v, %v", renamed, err)
	}

	if err := svc.DeleteThread(ctx, th.ID, other); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("non-owner delete: err = %v, want ErrForbidden", err)
	}
	if err := svc.DeleteThread(ctx, th.ID, owner); err != nil {
		t.Fatalf("DeleteThread: %v", err)
	}
	var posts int
	db.QueryRow(`SELECT COUNT(*) FROM forum_posts WHERE thread_id = $1`, th.ID).Scan(&posts)
	if posts != 0 {
		t.Errorf("posts left after delete: %d", posts)
	}
}

func TestPosts_ReplyNotifiesAndModeration(t *testing.T) {
	db := testDB(t)
	rec := &replyRecorder{}
	svc := newService(t, db, rec)
	ctx := context.Background()

	author := createActor(t, db, models.RoleMember)
	replier := createActor(t, db, models.RoleMember)
	mod := createActor(t, db, models.RoleModerator)
	cat := createCategory(t, db)

	th, err := svc.CreateThread(ctx, author, cat, "Q", "first")
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	root := th.Posts[0]

	reply, err := svc.CreatePost(ctx, th.ID, replier, "answer", &root.ID)
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if len(rec.calls) != 1 || rec.calls[0] != author.ID {
		t.Errorf("notifier calls = %v, want [%s]", rec.calls, author.ID)
	}

	if _, err := svc.DeletePost(ctx, reply.ID, author); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("member deleting another's post: err = %v, want ErrForbidden", err)
	}
	removed, err := svc.DeletePost(ctx, root.ID, mod)
	if err != nil {
		t.Fatalf("moderator delete: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
}

func TestGetThreadEmbedsPostPhotos(t *testing.T) {
	db := testDB(t)
	svc := newService(t, db, nil)
	ctx := context.Background()

	author := createActor(t, db, models.RoleMember)
	th, err := svc.CreateThread(ctx, author, createCategory(t, db), "Larch season", "see photos")
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	opening := th.Posts[0]
	reply, err := svc.CreatePost(ctx, th.ID, author, "no photos here", &opening.ID)
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	photo, err := store.NewPhotoStore(db).Create(ctx, &models.Photo{
		UserID: author.ID, PostID: &opening.ID, URL: "http://objects.test/larch.jpg",
		S3Key: "photos/larch.jpg", ContentType: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("attach photo: %v", err)
	}

	got, err := svc.GetThread(ctx, th.ID)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	root := got.Posts[0]
	if len(root.Photos) != 1 || root.Photos[0].ID != photo.ID {
		t.Errorf("opening post photos = %+v", root.Photos)
	}
	if len(root.Children) != 1 || root.Children[0].ID != reply.ID || len(root.Children[0].Photos) != 0 {
		t.Errorf("reply should have no photos: %+v", root.Children)
	}
}
