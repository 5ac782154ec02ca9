// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"trailhub/internal/database"
	"trailhub/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "trailhub")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "trailhub")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	// Run migrations to ensure the schema is current.
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testUser creates a throwaway member and removes it (with everything
// that cascades from it) when the test ends.
func testUser(t *testing.T, db *sql.DB) *models.User {
	t.Helper()
	name := "st-" + uuid.NewString()[:8]
	u, err := NewUserStore(db).Create(context.Background(), name, name+"@store-test.local", "password123", models.RoleMember)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM users WHERE id = $1", u.ID) })
	return u
}

// testTrail creates a park with one trail and removes both when the test ends.
func testTrail(t *testing.T, db *sql.DB) (parkID, trailID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	s := NewCatalogStore(db)
	code := "t" + uuid.NewString()[:6]

	parkID, _, err := s.UpsertPark(ctx, &models.Park{Code: code, Name: "Test Park " + code, States: "MN"})
	if err != nil {
		t.Fatalf("upsert park: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM parks WHERE id = $1", parkID) })

	trailID, _, err = s.UpsertTrail(ctx, &models.Trail{
		ExternalID: code + "_trail",
		ParkID:     &parkID,
		Name:       "Ridge Loop " + code,
		Difficulty: models.DifficultyModerate,
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("upsert trail: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM trails WHERE id = $1", trailID) })
	return parkID, trailID
}
