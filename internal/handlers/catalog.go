package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"trailhub/internal/apperr"
	"trailhub/internal/cache"
	"trailhub/internal/models"
	"trailhub/internal/slug"
	"trailhub/internal/store"
)

// Catalog serves the read side of the park and trail catalog. List and
// detail responses go through the Valkey catalog cache; the syncer clears
// it after each state it changes.
type Catalog struct {
	catalog *store.CatalogStore
	runs    *store.SyncRunStore
	cache   *cache.CatalogCache
}

// NewCatalog creates the Catalog handler group. catalogCache may be nil.
func NewCatalog(catalog *store.CatalogStore, runs *store.SyncRunStore, catalogCache *cache.CatalogCache) *Catalog {
	return &Catalog{catalog: catalog, runs: runs, cache: catalogCache}
}

// cached serves key from the cache or computes, stores and sends it.
func cached[T any](c *Catalog, w http.ResponseWriter, r *http.Request, key string, load func() (T, error)) {
	var hit T
	if c.cache.Get(r.Context(), key, &hit) {
		writeJSON(w, http.StatusOK, hit)
		return
	}
	v, err := load()
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.cache.Set(r.Context(), key, v)
	writeJSON(w, http.StatusOK, v)
}

// Parks lists parks, optionally filtered by ?state=.
func (c *Catalog) Parks(w http.ResponseWriter, r *http.Request) {
	state := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("state")))
	limit, offset := queryInt(r, "limit", 100, 500), queryInt(r, "offset", 0, 0)
	key := cache.Key("parks", url.Values{
		"state":  {state},
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	})
	cached(c, w, r, key, func() ([]models.Park, error) {
		return c.catalog.ListParks(r.Context(), state, limit, offset)
	})
}

type parkDetail struct {
	*models.Park
	Trails []models.Trail `json:"trails"`
}

// Park returns one park by registry code with its trails.
func (c *Catalog) Park(w http.ResponseWriter, r *http.Request) {
	code := strings.ToLower(chi.URLParam(r, "code"))
	cached(c, w, r, "park:"+code, func() (*parkDetail, error) {
		p, err := c.catalog.FindParkByCode(r.Context(), code)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, apperr.NotFound("catalog.park", "park %q not found", code)
		}
		trails, err := c.catalog.ListTrails(r.Context(), models.TrailFilter{ParkCode: code, Limit: 500})
		if err != nil {
			return nil, err
		}
		return &parkDetail{Park: p, Trails: trails}, nil
	})
}

// Trails lists trails filtered by ?park=, ?difficulty=, ?tag= and ?q=.
func (c *Catalog) Trails(w http.ResponseWriter, r *http.Request) {
	f, err := trailFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cached(c, w, r, trailsKey(f), func() ([]models.Trail, error) {
		return c.catalog.ListTrails(r.Context(), f)
	})
}

// trailFilter reads the trail list query into the form the store matches
// on: park codes and difficulties lower-cased, tags as slugs.
func trailFilter(r *http.Request) (models.TrailFilter, error) {
	q := r.URL.Query()
	f := models.TrailFilter{
		ParkCode:   strings.ToLower(strings.TrimSpace(q.Get("park"))),
		Difficulty: models.Difficulty(strings.ToLower(strings.TrimSpace(q.Get("difficulty")))),
		Query:      strings.TrimSpace(q.Get("q")),
		Tag:        slug.Generate(q.Get("tag")),
		Limit:      queryInt(r, "limit", 50, 200),
		Offset:     queryInt(r, "offset", 0, 0),
	}
	if f.Difficulty != "" && !f.Difficulty.Valid() {
		return f, apperr.Validation("catalog.trails", "unknown difficulty %q", f.Difficulty)
	}
	return f, nil
}

// trailsKey keys a trail list by its normalized filter. The text search is
// case-insensitive, so it is folded too.
func trailsKey(f models.TrailFilter) string {
	return cache.Key("trails", url.Values{
		"park":       {f.ParkCode},
		"difficulty": {string(f.Difficulty)},
		"q":          {strings.ToLower(f.Query)},
		"tag":        {f.Tag},
		"limit":      {strconv.Itoa(f.Limit)},
		"offset":     {strconv.Itoa(f.Offset)},
	})
}

// Trail returns one trail.
func (c *Catalog) Trail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cached(c, w, r, "trail:"+id.String(), func() (*models.Trail, error) {
		t, err := c.catalog.FindTrailByID(r.Context(), id)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, apperr.NotFound("catalog.trail", "trail not found")
		}
		return t, nil
	})
}

// Tags lists tags with their trail counts.
func (c *Catalog) Tags(w http.ResponseWriter, r *http.Request) {
	cached(c, w, r, "tags", func() ([]models.Tag, error) {
		return c.catalog.Tags(r.Context())
	})
}

type tagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// TagTrail attaches a tag to a trail, creating the tag on first use.
func (c *Catalog) TagTrail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req tagRequest
	if err := decode(w, r, "catalog.tag_trail", &req); err != nil {
		writeError(w, r, err)
		return
	}
	tag, err := c.catalog.TagTrail(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.cache.InvalidateAll(r.Context())
	writeJSON(w, http.StatusCreated, tag)
}

type catalogStats struct {
	Parks  int `json:"parks"`
	Trails int `json:"trails"`
}

// Stats returns catalog row counts.
func (c *Catalog) Stats(w http.ResponseWriter, r *http.Request) {
	cached(c, w, r, "stats", func() (catalogStats, error) {
		var st catalogStats
		var err error
		if st.Parks, err = c.catalog.CountParks(r.Context()); err != nil {
			return st, err
		}
		st.Trails, err = c.catalog.CountTrails(r.Context())
		return st, err
	})
}

// SyncRuns lists recent catalog sync runs, newest first.
func (c *Catalog) SyncRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := c.runs.RecentRuns(r.Context(), queryInt(r, "limit", 20, 200))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
