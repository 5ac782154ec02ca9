// Package social implements the community layer on catalog trails:
// bookmarks, reviews, condition reports, trail features and photos,
// including photos attached to forum posts.
package social

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"trailhub/internal/apperr"
	"trailhub/internal/guard"
	"trailhub/internal/imaging"
	"trailhub/internal/models"
	"trailhub/internal/store"
	"trailhub/internal/tracking"
)

// Limits on user-supplied text, in runes.
const (
	MaxReviewTitle   = 200
	MaxReviewBody    = 5000
	MaxConditionType = 50
	MaxCaption       = 500
	MaxFeatureName   = 255
	MaxFeatureType   = 100
)

// ConditionWindow is how far back condition listings look by default.
const ConditionWindow = 30 * 24 * time.Hour

// ObjectStore is where photo bytes live.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	FileURL(key string) string
}

// Service coordinates the trail community features.
type Service struct {
	store   *store.SocialStore
	photos  *store.PhotoStore
	objects ObjectStore
	policy  *guard.Policy
	logger  *slog.Logger
}

// NewService creates a social service. objects may be nil, in which case
// photo uploads fail with ErrUpstreamUnavailable.
func NewService(s *store.SocialStore, photos *store.PhotoStore, objects ObjectStore, policy *guard.Policy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, photos: photos, objects: objects, policy: policy, logger: logger}
}

// SaveTrail bookmarks a trail for the actor.
func (s *Service) SaveTrail(ctx context.Context, actor models.Actor, trailID uuid.UUID) error {
	return s.store.SaveTrail(ctx, actor.ID, trailID)
}

// UnsaveTrail removes a bookmark.
func (s *Service) UnsaveTrail(ctx context.Context, actor models.Actor, trailID uuid.UUID) error {
	removed, err := s.store.UnsaveTrail(ctx, actor.ID, trailID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("trail.unsave", "trail is not saved")
	}
	return nil
}

// SavedTrails lists the actor's bookmarks.
func (s *Service) SavedTrails(ctx context.Context, actor models.Actor) ([]models.SavedTrail, error) {
	return s.store.SavedTrails(ctx, actor.ID)
}

// ReviewInput holds the editable fields of a review.
type ReviewInput struct {
	Rating      int
	Title       string
	Body        string
	VisitedDate *time.Time
}

func (in ReviewInput) validate(op string) (ReviewInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	switch {
	case in.Rating < 1 || in.Rating > 5:
		return in, apperr.Validation(op, "rating must be between 1 and 5")
	case utf8.RuneCountInString(in.Title) > MaxReviewTitle:
		return in, apperr.Validation(op, "title is too long (max %d characters)", MaxReviewTitle)
	case utf8.RuneCountInString(in.Body) > MaxReviewBody:
		return in, apperr.Validation(op, "review is too long (max %d characters)", MaxReviewBody)
	case in.VisitedDate != nil && in.VisitedDate.After(time.Now()):
		return in, apperr.Validation(op, "visited date is in the future")
	}
	return in, nil
}

// CreateReview adds the actor's review of a trail.
func (s *Service) CreateReview(ctx context.Context, actor models.Actor, trailID uuid.UUID, in ReviewInput) (*models.Review, error) {
	in, err := in.validate("review.create")
	if err != nil {
		return nil, err
	}
	return s.store.CreateReview(ctx, &models.Review{
		TrailID: trailID, UserID: actor.ID,
		Rating: in.Rating, Title: in.Title, Body: in.Body, VisitedDate: in.VisitedDate,
	})
}

func (s *Service) findReview(ctx context.Context, op string, id uuid.UUID) (*models.Review, error) {
	r, err := s.store.FindReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.NotFound(op, "review not found")
	}
	return r, nil
}

// UpdateReview rewrites a review. Only its author may do so.
func (s *Service) UpdateReview(ctx context.Context, actor models.Actor, id uuid.UUID, in ReviewInput) (*models.Review, error) {
	const op = "review.update"
	in, err := in.validate(op)
	if err != nil {
		return nil, err
	}
	r, err := s.findReview(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if err := guard.RequireOwner(op, actor.ID, r); err != nil {
		return nil, err
	}

	r.Rating, r.Title, r.Body, r.VisitedDate = in.Rating, in.Title, in.Body, in.VisitedDate
	if err := s.store.UpdateReview(ctx, r); err != nil {
		return nil, err
	}
	return s.store.FindReview(ctx, id)
}

// DeleteReview removes a review. Its author or a moderator may do so.
func (s *Service) DeleteReview(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	const op = "review.delete"
	r, err := s.findReview(ctx, op, id)
	if err != nil {
		return err
	}
	if err := s.policy.RequireOwnerOrModerator(op, actor, r); err != nil {
		return err
	}
	return s.store.DeleteReview(ctx, id)
}

// TrailReviews lists a trail's reviews with their average rating.
func (s *Service) TrailReviews(ctx context.Context, trailID uuid.UUID) ([]models.Review, float64, error) {
	return s.store.TrailReviews(ctx, trailID)
}

// Severity levels accepted for condition reports.
var severities = map[string]bool{"low": true, "medium": true, "high": true}

// ReportCondition files a condition report. An empty severity means low.
func (s *Service) ReportCondition(ctx context.Context, actor models.Actor, trailID uuid.UUID, conditionType, description, severity string) (*models.TrailCondition, error) {
	const op = "condition.report"

	conditionType = strings.TrimSpace(conditionType)
	severity = strings.ToLower(strings.TrimSpace(severity))
	if severity == "" {
		severity = "low"
	}
	switch {
	case conditionType == "":
		return nil, apperr.Validation(op, "condition type is required")
	case utf8.RuneCountInString(conditionType) > MaxConditionType:
		return nil, apperr.Validation(op, "condition type is too long (max %d characters)", MaxConditionType)
	case !severities[severity]:
		return nil, apperr.Validation(op, "severity must be low, medium or high")
	}

	return s.store.ReportCondition(ctx, &models.TrailCondition{
		TrailID: trailID, UserID: actor.ID, ConditionType: conditionType,
		Description: strings.TrimSpace(description), Severity: severity,
	})
}

// TrailConditions lists reports filed within the condition window.
func (s *Service) TrailConditions(ctx context.Context, trailID uuid.UUID) ([]models.TrailCondition, error) {
	return s.store.TrailConditions(ctx, trailID, time.Now().Add(-ConditionWindow))
}

// DeleteCondition removes a report. Its reporter or a moderator may do so.
func (s *Service) DeleteCondition(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	const op = "condition.delete"
	c, err := s.store.FindCondition(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return apperr.NotFound(op, "condition report not found")
	}
	if err := s.policy.RequireOwnerOrModerator(op, actor, c); err != nil {
		return err
	}
	return s.store.DeleteCondition(ctx, id)
}

// FeatureInput holds the editable fields of a trail feature. Coordinates
// are optional but come as a pair.
type FeatureInput struct {
	FeatureType string
	Name        string
	Description string
	Latitude    *float64
	Longitude   *float64
}

func (in FeatureInput) validate(op string) (FeatureInput, error) {
	in.FeatureType = strings.ToLower(strings.TrimSpace(in.FeatureType))
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Name == "":
		return in, apperr.Validation(op, "feature name is required")
	case utf8.RuneCountInString(in.Name) > MaxFeatureName:
		return in, apperr.Validation(op, "feature name is too long (max %d characters)", MaxFeatureName)
	case utf8.RuneCountInString(in.FeatureType) > MaxFeatureType:
		return in, apperr.Validation(op, "feature type is too long (max %d characters)", MaxFeatureType)
	case (in.Latitude == nil) != (in.Longitude == nil):
		return in, apperr.Validation(op, "latitude and longitude must be given together")
	case in.Latitude != nil && !tracking.ValidCoordinate(*in.Latitude, *in.Longitude):
		return in, apperr.Validation(op, "coordinates are out of range")
	}
	return in, nil
}

// AddFeature records a point of interest on a trail.
func (s *Service) AddFeature(ctx context.Context, actor models.Actor, trailID uuid.UUID, in FeatureInput) (*models.TrailFeature, error) {
	in, err := in.validate("feature.create")
	if err != nil {
		return nil, err
	}
	return s.store.CreateFeature(ctx, &models.TrailFeature{
		TrailID: trailID, CreatedBy: &actor.ID,
		FeatureType: in.FeatureType, Name: in.Name, Description: in.Description,
		Latitude: in.Latitude, Longitude: in.Longitude,
	})
}

// TrailFeatures lists a trail's features, optionally of one type.
func (s *Service) TrailFeatures(ctx context.Context, trailID uuid.UUID, featureType string) ([]models.TrailFeature, error) {
	return s.store.TrailFeatures(ctx, trailID, strings.ToLower(strings.TrimSpace(featureType)))
}

func (s *Service) findFeature(ctx context.Context, op string, id uuid.UUID) (*models.TrailFeature, error) {
	f, err := s.store.FindFeature(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, apperr.NotFound(op, "feature not found")
	}
	return f, nil
}

// UpdateFeature rewrites a feature. Its creator or a moderator may do so.
func (s *Service) UpdateFeature(ctx context.Context, actor models.Actor, id uuid.UUID, in FeatureInput) (*models.TrailFeature, error) {
	const op = "feature.update"
	in, err := in.validate(op)
	if err != nil {
		return nil, err
	}
	f, err := s.findFeature(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.RequireOwnerOrModerator(op, actor, f); err != nil {
		return nil, err
	}

	f.FeatureType, f.Name, f.Description = in.FeatureType, in.Name, in.Description
	f.Latitude, f.Longitude = in.Latitude, in.Longitude
	return s.store.UpdateFeature(ctx, f)
}

// DeleteFeature removes a feature. Its creator or a moderator may do so.
func (s *Service) DeleteFeature(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	const op = "feature.delete"
	f, err := s.findFeature(ctx, op, id)
	if err != nil {
		return err
	}
	if err := s.policy.RequireOwnerOrModerator(op, actor, f); err != nil {
		return err
	}
	return s.store.DeleteFeature(ctx, id)
}

// PhotoUpload is an uploaded image with its attachment targets.
type PhotoUpload struct {
	Data      []byte
	TrailID   *uuid.UUID
	HikeID    *uuid.UUID
	PostID    *uuid.UUID
	Caption   string
	Latitude  *float64
	Longitude *float64
}

// allowedFormats maps decoder names to stored content types.
var allowedFormats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// UploadPhoto stores the original and a JPEG thumbnail, then records the
// photo. Objects are removed again if the row cannot be written. Only a
// post's author may attach photos to it.
func (s *Service) UploadPhoto(ctx context.Context, actor models.Actor, up PhotoUpload) (*models.Photo, error) {
	const op = "photo.upload"

	if s.objects == nil {
		return nil, apperr.Upstream(op, fmt.Errorf("object storage is not configured"))
	}
	if up.TrailID == nil && up.HikeID == nil && up.PostID == nil {
		return nil, apperr.Validation(op, "a photo must be attached to a trail, a hike or a post")
	}
	up.Caption = strings.TrimSpace(up.Caption)
	if utf8.RuneCountInString(up.Caption) > MaxCaption {
		return nil, apperr.Validation(op, "caption is too long (max %d characters)", MaxCaption)
	}
	if up.PostID != nil {
		author, err := s.photos.PostAuthor(ctx, *up.PostID)
		if err != nil {
			return nil, err
		}
		if author == nil {
			return nil, apperr.NotFound(op, "post not found")
		}
		if *author != actor.ID {
			return nil, apperr.Forbidden(op, "only the post author can attach photos")
		}
	}

	format, _, _, err := imaging.Probe(up.Data)
	if err != nil {
		return nil, apperr.Validation(op, "file is not a supported image")
	}
	contentType, ok := allowedFormats[format]
	if !ok {
		return nil, apperr.Validation(op, "unsupported image format %q", format)
	}
	thumb, err := imaging.Generate(up.Data, imaging.Thumb)
	if err != nil {
		return nil, apperr.Validation(op, "image could not be processed")
	}

	base := path.Join("photos", actor.ID.String(), uuid.NewString())
	key := base + "." + format
	thumbKey := base + "_thumb.jpg"

	if err := s.objects.Upload(ctx, key, contentType, bytes.NewReader(up.Data), int64(len(up.Data))); err != nil {
		return nil, apperr.Upstream(op, err)
	}
	if err := s.objects.Upload(ctx, thumbKey, thumb.ContentType, bytes.NewReader(thumb.Data), int64(len(thumb.Data))); err != nil {
		s.removeObjects(ctx, key)
		return nil, apperr.Upstream(op, err)
	}

	p, err := s.photos.Create(ctx, &models.Photo{
		UserID: actor.ID, TrailID: up.TrailID, HikeID: up.HikeID, PostID: up.PostID,
		URL: s.objects.FileURL(key), ThumbURL: s.objects.FileURL(thumbKey),
		S3Key: key, ThumbS3Key: &thumbKey,
		ContentType: contentType, SizeBytes: int64(len(up.Data)),
		Caption: up.Caption, Latitude: up.Latitude, Longitude: up.Longitude,
	})
	if err != nil {
		s.removeObjects(ctx, key, thumbKey)
		return nil, err
	}

	s.logger.Info("photo uploaded", "photo_id", p.ID, "user_id", actor.ID, "post_id", up.PostID, "size", p.SizeBytes)
	return p, nil
}

// TrailPhotos lists photos attached to a trail.
func (s *Service) TrailPhotos(ctx context.Context, trailID uuid.UUID, limit, offset int) ([]models.Photo, error) {
	return s.photos.ListByTrail(ctx, trailID, limit, offset)
}

// UserPhotos lists photos uploaded by a user.
func (s *Service) UserPhotos(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Photo, error) {
	return s.photos.ListByUser(ctx, userID, limit, offset)
}

// DeletePhoto removes one of the actor's photos. The stored objects are
// deleted best effort after the row is gone.
func (s *Service) DeletePhoto(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	const op = "photo.delete"

	existing, err := s.photos.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperr.NotFound(op, "photo not found")
	}
	if err := guard.RequireOwner(op, actor.ID, existing); err != nil {
		return err
	}

	p, err := s.photos.Delete(ctx, id, actor.ID)
	if err != nil {
		return err
	}
	if p == nil {
		return apperr.NotFound(op, "photo not found")
	}

	keys := []string{p.S3Key}
	if p.ThumbS3Key != nil {
		keys = append(keys, *p.ThumbS3Key)
	}
	s.removeObjects(ctx, keys...)
	return nil
}

func (s *Service) removeObjects(ctx context.Context, keys ...string) {
	if s.objects == nil {
		return
	}
	for _, k := range keys {
		if err := s.objects.Delete(context.WithoutCancel(ctx), k); err != nil {
			s.logger.Warn("failed to delete photo object", "key", k, "error", err)
		}
	}
}
