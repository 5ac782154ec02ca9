package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"

	"trailhub/internal/apperr"
	"trailhub/internal/models"
)

func TestPhotoStoreLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewPhotoStore(db)
	owner, other := testUser(t, db), testUser(t, db)
	_, trailID := testTrail(t, db)

	key := "photos/test/" + uuid.NewString()[:8] + ".jpg"
	thumb := key + ".thumb.jpg"
	created, err := s.Create(ctx, &models.Photo{
		UserID: owner.ID, TrailID: &trailID, URL: "http://localhost/" + key,
		S3Key: key, ThumbS3Key: &thumb, ContentType: "image/jpeg", SizeBytes: 2048, Caption: "summit",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Error("expected non-nil UUID")
	}

	byTrail, err := s.ListByTrail(ctx, trailID, 10, 0)
	if err != nil || len(byTrail) != 1 {
		t.Fatalf("ListByTrail: %d, %v", len(byTrail), err)
	}
	byUser, _ := s.ListByUser(ctx, owner.ID, 10, 0)
	if len(byUser) != 1 {
		t.Errorf("ListByUser: got %d", len(byUser))
	}

	// Delete is scoped to the uploader.
	if p, err := s.Delete(ctx, created.ID, other.ID); err != nil || p != nil {
		t.Fatalf("Delete by another user: got %v, %v", p, err)
	}
	deleted, err := s.Delete(ctx, created.ID, owner.ID)
	if err != nil || deleted == nil {
		t.Fatalf("Delete: %v, %v", deleted, err)
	}
	if deleted.S3Key != key || deleted.ThumbS3Key == nil {
		t.Error("deleted row should carry the object keys")
	}
	if gone, _ := s.FindByID(ctx, created.ID); gone != nil {
		t.Error("photo still present after delete")
	}
}

// testPost creates a category, a thread and its opening post by author.
func testPost(t *testing.T, db *sql.DB, author uuid.UUID) (threadID, postID uuid.UUID) {
	t.Helper()
	var catID int
	if err := db.QueryRow(`INSERT INTO forum_categories (name) VALUES ($1) RETURNING id`,
		"st-cat-"+uuid.NewString()[:8]).Scan(&catID); err != nil {
		t.Fatalf("create category: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM forum_categories WHERE id = $1", catID) })

	if err := db.QueryRow(`INSERT INTO forum_threads (category_id, author_id, title) VALUES ($1, $2, 'Gear') RETURNING id`,
		catID, author).Scan(&threadID); err != nil {
		t.Fatalf("create thread: %v", err)
	}
	if err := db.QueryRow(`INSERT INTO forum_posts (thread_id, author_id, body) VALUES ($1, $2, 'photos below') RETURNING id`,
		threadID, author).Scan(&postID); err != nil {
		t.Fatalf("create post: %v", err)
	}
	return threadID, postID
}

func TestPhotoStorePostAttachments(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewPhotoStore(db)
	author := testUser(t, db)
	threadID, postID := testPost(t, db, author.ID)

	got, err := s.PostAuthor(ctx, postID)
	if err != nil || got == nil || *got != author.ID {
		t.Fatalf("PostAuthor: %v, %v", got, err)
	}
	if missing, err := s.PostAuthor(ctx, uuid.New()); err != nil || missing != nil {
		t.Errorf("PostAuthor for unknown post: %v, %v", missing, err)
	}

	var ids []uuid.UUID
	for _, caption := range []string{"first", "second"} {
		key := "photos/post/" + uuid.NewString()[:8] + ".jpg"
		p, err := s.Create(ctx, &models.Photo{
			UserID: author.ID, PostID: &postID, URL: "http://localhost/" + key,
			S3Key: key, ContentType: "image/jpeg", Caption: caption,
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if p.PostID == nil || *p.PostID != postID {
			t.Errorf("created photo should carry its post, got %v", p.PostID)
		}
		ids = append(ids, p.ID)
	}

	byPost, err := s.ListByThread(ctx, threadID)
	if err != nil {
		t.Fatalf("ListByThread: %v", err)
	}
	photos := byPost[postID]
	if len(photos) != 2 || photos[0].Caption != "first" || photos[1].ID != ids[1] {
		t.Fatalf("post photos = %+v", photos)
	}

	orphan := uuid.New()
	_, err = s.Create(ctx, &models.Photo{UserID: author.ID, PostID: &orphan, URL: "u", S3Key: "photos/orphan.jpg", ContentType: "image/jpeg"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown post: expected ErrNotFound, got %v", err)
	}
	mine, _ := s.ListByUser(ctx, author.ID, 10, 0)
	if len(mine) != 2 {
		t.Errorf("failed link must not leave a photo row: user has %d photos", len(mine))
	}

	if _, err := db.Exec(`DELETE FROM forum_posts WHERE id = $1`, postID); err != nil {
		t.Fatal(err)
	}
	byPost, _ = s.ListByThread(ctx, threadID)
	if len(byPost) != 0 {
		t.Errorf("links should go with the post, got %v", byPost)
	}
}
