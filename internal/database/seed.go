package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// defaultCategories are the forum categories created on first start.
var defaultCategories = []struct {
	name, description string
}{
	{"Trail Reports", "Recent conditions and trip reports from the trail."},
	{"Gear Talk", "Boots, packs, shelters and everything you carry."},
	{"Trip Planning", "Permits, routes, logistics and partners."},
	{"Off Topic", "Anything else on your mind."},
}

// Seed populates the database with initial development data: an admin
// account, the default forum categories and the "general" chat room.
// Each part is skipped when its table already has rows.
func Seed(db *sql.DB) error {
	if err := seedAdmin(db); err != nil {
		return err
	}
	if err := seedCategories(db); err != nil {
		return err
	}
	if err := seedChatRoom(db); err != nil {
		return err
	}
	return nil
}

func seedAdmin(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}
	if count > 0 {
		slog.Info("users already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO users (username, email, password_hash, full_name, role, experience_level)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, "admin", "admin@trailhub.local", string(hash), "Admin", "admin", "expert")
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	slog.Info("database seeded with default admin user",
		"email", "admin@trailhub.local",
		"password", "admin",
	)
	return nil
}

func seedCategories(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed categories begin: %w", err)
	}
	defer tx.Rollback()

	for i, c := range defaultCategories {
		if _, err := tx.Exec(`
			INSERT INTO forum_categories (name, description, display_order)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO NOTHING
		`, c.name, c.description, i); err != nil {
			return fmt.Errorf("seed category %q: %w", c.name, err)
		}
	}
	return tx.Commit()
}

func seedChatRoom(db *sql.DB) error {
	_, err := db.Exec(`
		INSERT INTO chat_rooms (name, slug) VALUES ('General', 'general')
		ON CONFLICT (slug) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("seed chat room: %w", err)
	}
	return nil
}
