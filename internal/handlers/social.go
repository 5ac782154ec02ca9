package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"trailhub/internal/apperr"
	"trailhub/internal/models"
	"trailhub/internal/social"
)

// Social groups trail community handlers: saved trails, reviews,
// condition reports, trail features and photos.
type Social struct {
	svc       *social.Service
	maxUpload int64
}

// NewSocial creates the Social handler group. maxUpload caps photo size in
// bytes.
func NewSocial(svc *social.Service, maxUpload int64) *Social {
	return &Social{svc: svc, maxUpload: maxUpload}
}

// SaveTrail bookmarks a trail. Saving twice is not an error.
func (s *Social) SaveTrail(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.SaveTrail(r.Context(), act, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnsaveTrail removes a bookmark.
func (s *Social) UnsaveTrail(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.UnsaveTrail(r.Context(), act, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SavedTrails lists the actor's bookmarks.
func (s *Social) SavedTrails(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	saved, err := s.svc.SavedTrails(r.Context(), act)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

type reviewRequest struct {
	Rating      int     `json:"rating" validate:"required,gte=1,lte=5"`
	Title       string  `json:"title" validate:"max=200"`
	Body        string  `json:"body" validate:"max=5000"`
	VisitedDate *string `json:"visited_date" validate:"omitempty,datetime=2006-01-02"`
}

func (req reviewRequest) input() social.ReviewInput {
	in := social.ReviewInput{Rating: req.Rating, Title: req.Title, Body: req.Body}
	if req.VisitedDate != nil {
		if d, err := time.Parse(time.DateOnly, *req.VisitedDate); err == nil {
			in.VisitedDate = &d
		}
	}
	return in
}

type trailReviews struct {
	Average float64         `json:"average_rating"`
	Reviews []models.Review `json:"reviews"`
}

// TrailReviews lists a trail's reviews with the average rating.
func (s *Social) TrailReviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	reviews, avg, err := s.svc.TrailReviews(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trailReviews{Average: avg, Reviews: reviews})
}

// CreateReview reviews a trail.
func (s *Social) CreateReview(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reviewRequest
	if err := decode(w, r, "review.create", &req); err != nil {
		writeError(w, r, err)
		return
	}
	review, err := s.svc.CreateReview(r.Context(), act, id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// UpdateReview replaces a review. Author only.
func (s *Social) UpdateReview(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reviewRequest
	if err := decode(w, r, "review.update", &req); err != nil {
		writeError(w, r, err)
		return
	}
	review, err := s.svc.UpdateReview(r.Context(), act, id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// DeleteReview removes a review.
func (s *Social) DeleteReview(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteReview(r.Context(), act, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TrailConditions lists recent condition reports for a trail.
func (s *Social) TrailConditions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	conds, err := s.svc.TrailConditions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conds)
}

type conditionRequest struct {
	ConditionType string `json:"condition_type" validate:"required,max=50"`
	Description   string `json:"description" validate:"max=2000"`
	Severity      string `json:"severity" validate:"omitempty,oneof=low medium high"`
}

// ReportCondition files a condition report for a trail.
func (s *Social) ReportCondition(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req conditionRequest
	if err := decode(w, r, "condition.report", &req); err != nil {
		writeError(w, r, err)
		return
	}
	cond, err := s.svc.ReportCondition(r.Context(), act, id, req.ConditionType, req.Description, req.Severity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cond)
}

// DeleteCondition removes a condition report.
func (s *Social) DeleteCondition(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteCondition(r.Context(), act, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadPhoto accepts a multipart form: file "photo", optional trail_id,
// hike_id, post_id, caption, latitude and longitude.
func (s *Social) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	const op = "photo.upload"

	act, ok := actor(w, r)
	if !ok {
		return
	}
	up, err := s.readUpload(w, r, op)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	if up.TrailID, err = formUUID(r, op, "trail_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if up.HikeID, err = formUUID(r, op, "hike_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if up.PostID, err = formUUID(r, op, "post_id"); err != nil {
		writeError(w, r, err)
		return
	}
	s.upload(w, r, act, up)
}

// UploadPostPhoto attaches a photo to the forum post in the path. The form
// is the same as UploadPhoto's without the attachment ids.
func (s *Social) UploadPostPhoto(w http.ResponseWriter, r *http.Request) {
	const op = "photo.upload"

	act, ok := actor(w, r)
	if !ok {
		return
	}
	postID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	up, err := s.readUpload(w, r, op)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	up.PostID = &postID
	s.upload(w, r, act, up)
}

func (s *Social) upload(w http.ResponseWriter, r *http.Request, act models.Actor, up social.PhotoUpload) {
	photo, err := s.svc.UploadPhoto(r.Context(), act, up)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, photo)
}

// readUpload parses the multipart form and returns the photo bytes with
// caption and coordinates. On success the caller owns r.MultipartForm.
func (s *Social) readUpload(w http.ResponseWriter, r *http.Request, op string) (social.PhotoUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return social.PhotoUpload{}, apperr.Validation(op, "file too large (max %d MB)", s.maxUpload>>20)
		}
		return social.PhotoUpload{}, apperr.Validation(op, "invalid multipart form")
	}

	up, err := readPhotoFields(r, op, s.maxUpload)
	if err != nil {
		r.MultipartForm.RemoveAll()
	}
	return up, err
}

func readPhotoFields(r *http.Request, op string, maxUpload int64) (social.PhotoUpload, error) {
	var up social.PhotoUpload

	file, header, err := r.FormFile("photo")
	if err != nil {
		return up, apperr.Validation(op, "photo file is required")
	}
	defer file.Close()
	if header.Size > maxUpload {
		return up, apperr.Validation(op, "file too large (max %d MB)", maxUpload>>20)
	}

	if up.Data, err = io.ReadAll(file); err != nil {
		return up, apperr.Validation(op, "could not read photo")
	}
	up.Caption = r.FormValue("caption")
	if up.Latitude, err = formFloat(r, op, "latitude"); err != nil {
		return up, err
	}
	if up.Longitude, err = formFloat(r, op, "longitude"); err != nil {
		return up, err
	}
	return up, nil
}

func formUUID(r *http.Request, op, name string) (*uuid.UUID, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation(op, "invalid %s", name)
	}
	return &id, nil
}

func formFloat(r *http.Request, op, name string) (*float64, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperr.Validation(op, "invalid %s", name)
	}
	return &v, nil
}

// TrailPhotos lists photos attached to a trail, newest first.
func (s *Social) TrailPhotos(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	photos, err := s.svc.TrailPhotos(r.Context(), id, queryInt(r, "limit", 50, 200), queryInt(r, "offset", 0, 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, photos)
}

// MyPhotos lists the actor's photos, newest first.
func (s *Social) MyPhotos(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	photos, err := s.svc.UserPhotos(r.Context(), act.ID, queryInt(r, "limit", 50, 200), queryInt(r, "offset", 0, 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, photos)
}

// DeletePhoto removes a photo and its stored objects.
func (s *Social) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeletePhoto(r.Context(), act, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type featureRequest struct {
	FeatureType string   `json:"feature_type" validate:"max=100"`
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description" validate:"max=5000"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,longitude"`
}

func (req featureRequest) input() social.FeatureInput {
	return social.FeatureInput{
		FeatureType: req.FeatureType, Name: req.Name, Description: req.Description,
		Latitude: req.Latitude, Longitude: req.Longitude,
	}
}

// TrailFeatures lists a trail's points of interest. ?type= narrows to one
// feature type.
func (s *Social) TrailFeatures(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	features, err := s.svc.TrailFeatures(r.Context(), id, r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, features)
}

// CreateFeature adds a point of interest to a trail.
func (s *Social) CreateFeature(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req featureRequest
	if err := decode(w, r, "feature.create", &req); err != nil {
		writeError(w, r, err)
		return
	}
	feature, err := s.svc.AddFeature(r.Context(), act, id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, feature)
}

// UpdateFeature replaces a feature. Creator or moderator.
func (s *Social) UpdateFeature(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req featureRequest
	if err := decode(w, r, "feature.update", &req); err != nil {
		writeError(w, r, err)
		return
	}
	feature, err := s.svc.UpdateFeature(r.Context(), act, id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feature)
}

// DeleteFeature removes a feature.
func (s *Social) DeleteFeature(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteFeature(r.Context(), act, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
