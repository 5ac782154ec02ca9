// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"trailhub/internal/apperr"
	"trailhub/internal/forum"
	"trailhub/internal/models"
)

// Forum groups forum category, thread and post handlers.
type Forum struct {
	svc *forum.Service
}

// NewForum creates a new Forum handler group.
func NewForum(svc *forum.Service) *Forum {
	return &Forum{svc: svc}
}

// Categories lists forum categories with thread counts.
func (f *Forum) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := f.svc.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// Threads lists threads, pinned first. ?category= narrows to one category.
func (f *Forum) Threads(w http.ResponseWriter, r *http.Request) {
	var category *int
	if raw := r.URL.Query().Get("category"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, apperr.Validation("forum.threads", "invalid category"))
			return
		}
		category = &id
	}
	threads, err := f.svc.ListThreads(r.Context(), category, queryInt(r, "limit", 50, 200), queryInt(r, "offset", 0, 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

type createThreadRequest struct {
	CategoryID int    `json:"category_id" validate:"required"`
	Title      string `json:"title" validate:"required"`
	Body       string `json:"body" validate:"required"`
}

// CreateThread opens a thread with its first post.
func (f *Forum) CreateThread(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	var req createThreadRequest
	if err := decode(w, r, "forum.create_thread", &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := f.svc.CreateThread(r.Context(), act, req.CategoryID, req.Title, req.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Thread returns a thread with its post forest and counts the view.
func (f *Forum) Thread(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := f.svc.GetThread(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type titleRequest struct {
	Title string `json:"title" validate:"required"`
}

// UpdateThread renames a thread.
func (f *Forum) UpdateThread(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req titleRequest
	if err := decode(w, r, "forum.update_title", &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := f.svc.UpdateThreadTitle(r.Context(), id, act, req.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteThread deletes a thread with all its posts.
func (f *Forum) DeleteThread(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := f.svc.DeleteThread(r.Context(), id, act); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleLock flips the thread's locked flag.
func (f *Forum) ToggleLock(w http.ResponseWriter, r *http.Request) {
	f.toggle(w, r, f.svc.ToggleLock)
}

// TogglePin flips the thread's pinned flag.
func (f *Forum) TogglePin(w http.ResponseWriter, r *http.Request) {
	f.toggle(w, r, f.svc.TogglePin)
}

func (f *Forum) toggle(w http.ResponseWriter, r *http.Request, flip func(context.Context, uuid.UUID, models.Actor) (models.ThreadState, error)) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := flip(r.Context(), id, act)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type postRequest struct {
	Body     string     `json:"body" validate:"required"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// CreatePost adds a post or a reply to a thread.
func (f *Forum) CreatePost(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	threadID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req postRequest
	if err := decode(w, r, "forum.create_post", &req); err != nil {
		writeError(w, r, err)
		return
	}
	post, err := f.svc.CreatePost(r.Context(), threadID, act, req.Body, req.ParentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

type bodyRequest struct {
	Body string `json:"body" validate:"required"`
}

// UpdatePost edits a post body.
func (f *Forum) UpdatePost(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req bodyRequest
	if err := decode(w, r, "forum.update_post", &req); err != nil {
		writeError(w, r, err)
		return
	}
	post, err := f.svc.UpdatePost(r.Context(), id, act, req.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// DeletePost removes a post and every reply beneath it.
func (f *Forum) DeletePost(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	removed, err := f.svc.DeletePost(r.Context(), id, act)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

// PostRevisions lists a post's earlier bodies.
func (f *Forum) PostRevisions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	revs, err := f.svc.PostRevisions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, revs)
}
