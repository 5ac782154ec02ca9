package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SavedTrail is a user's bookmark on a trail. Unique per (user, trail).
type SavedTrail struct {
	UserID    uuid.UUID `json:"user_id"`
	TrailID   uuid.UUID `json:"trail_id"`
	TrailName string    `json:"trail_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Review is a rated write-up of a trail.
type Review struct {
	ID          uuid.UUID  `json:"id"`
	TrailID     uuid.UUID  `json:"trail_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Username    string     `json:"username,omitempty"`
	Rating      int        `json:"rating"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	VisitedDate *time.Time `json:"visited_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// OwnerID returns the reviewer.
func (r *Review) OwnerID() uuid.UUID { return r.UserID }

// TrailCondition is a user report about current trail conditions.
type TrailCondition struct {
	ID            uuid.UUID `json:"id"`
	TrailID       uuid.UUID `json:"trail_id"`
	UserID        uuid.UUID `json:"user_id"`
	ConditionType string    `json:"condition_type"`
	Description   string    `json:"description"`
	Severity      string    `json:"severity"`
	ReportedAt    time.Time `json:"reported_at"`
}

// OwnerID returns the reporter.
func (c *TrailCondition) OwnerID() uuid.UUID { return c.UserID }

// Photo is an image stored in object storage and attached to a trail, a
// hike or a forum post.
// Only the URL and object keys are kept here.
type Photo struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	TrailID     *uuid.UUID `json:"trail_id"`
	HikeID      *uuid.UUID `json:"hike_id"`
	PostID      *uuid.UUID `json:"post_id,omitempty"`
	URL         string     `json:"url"`
	ThumbURL    string     `json:"thumb_url,omitempty"`
	S3Key       string     `json:"-"`
	ThumbS3Key  *string    `json:"-"`
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	Caption     string     `json:"caption"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	CreatedAt   time.Time  `json:"created_at"`
}

// OwnerID returns the uploader.
func (p *Photo) OwnerID() uuid.UUID { return p.UserID }

// IsImage returns true if the photo has an image content type.
func (p *Photo) IsImage() bool {
	return strings.HasPrefix(p.ContentType, "image/")
}

// HumanSize returns a human-readable file size string.
func (p *Photo) HumanSize() string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case p.SizeBytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(p.SizeBytes)/float64(mb))
	case p.SizeBytes >= kb:
		return fmt.Sprintf("%.0f KB", float64(p.SizeBytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", p.SizeBytes)
	}
}

// TrailFeature is a point of interest along a trail: a waterfall, a
// campsite, a viewpoint. CreatedBy is nil for features whose author was
// deleted; those can only be changed by moderators.
type TrailFeature struct {
	ID          uuid.UUID  `json:"id"`
	TrailID     uuid.UUID  `json:"trail_id"`
	CreatedBy   *uuid.UUID `json:"created_by"`
	FeatureType string     `json:"feature_type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// OwnerID returns the creator, or uuid.Nil when there is none.
func (f *TrailFeature) OwnerID() uuid.UUID {
	if f.CreatedBy == nil {
		return uuid.Nil
	}
	return *f.CreatedBy
}
