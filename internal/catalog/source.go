// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"trailhub/internal/apperr"
	"trailhub/internal/metrics"
)

// ParkRecord is a park as reported by the park registry.
type ParkRecord struct {
	Code        string
	Name        string
	States      string
	Description string
	URL         string
	Latitude    *float64
	Longitude   *float64
}

// TrailRecord is a trail as reported by the geo-trail source. Length and
// ElevationGain hold whatever the source sent and are coerced on upsert.
type TrailRecord struct {
	ID            string
	Name          string
	Description   string
	Location      string
	Latitude      *float64
	Longitude     *float64
	Difficulty    string
	Length        any
	ElevationGain any
	TrailType     string
	ImageURL      string
	Raw           []byte
}

// ParkSource lists parks in a state.
type ParkSource interface {
	ParksByState(ctx context.Context, stateCode string, limit int) ([]ParkRecord, error)
}

// TrailSource lists trails around a point.
type TrailSource interface {
	TrailsNear(ctx context.Context, lat, lon float64, radiusMiles int) ([]TrailRecord, error)
}

// flexFloat decodes a coordinate sent either as a JSON number or as a
// string. Empty strings and null decode to nil.
type flexFloat struct {
	v *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		f.v = nil
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f.v = nil
		return nil
	}
	f.v = &v
	return nil
}

// flexString decodes an identifier sent either as a string or a number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.TrimSpace(string(b)))
	return nil
}

// httpSource is the shared GET-and-decode plumbing for both sources.
type httpSource struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
	breaker *breaker
}

func newHTTPSource(name string, client *http.Client, rps float64) *httpSource {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &httpSource{
		name:    name,
		client:  client,
		limiter: limiter,
		breaker: newBreaker(name),
	}
}

// getJSON performs a GET and decodes the body into out. Transport errors,
// timeouts and non-2xx responses are UpstreamUnavailable.
func (s *httpSource) getJSON(ctx context.Context, url string, header http.Header, out any) error {
	op := s.name + ".get"

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return apperr.Upstream(op, err)
		}
	}

	_, err := s.breaker.execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return nil, nil
	})
	metrics.RecordSourceRequest(s.name, err)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return apperr.Upstream(op, err)
	}
	return nil
}
