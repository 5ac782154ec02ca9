package catalog

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// NPSClient reads parks from the National Park Service API.
type NPSClient struct {
	baseURL string
	apiKey  string
	src     *httpSource
}

// NewNPSClient creates an NPS client. timeout bounds each request; rps
// caps the request rate (0 disables the limiter).
func NewNPSClient(baseURL, apiKey string, timeout time.Duration, rps float64) *NPSClient {
	return &NPSClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/",
		apiKey:  apiKey,
		src:     newHTTPSource("nps", &http.Client{Timeout: timeout}, rps),
	}
}

type npsPark struct {
	ParkCode    string    `json:"parkCode"`
	FullName    string    `json:"fullName"`
	States      string    `json:"states"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Latitude    flexFloat `json:"latitude"`
	Longitude   flexFloat `json:"longitude"`
}

type npsParksResponse struct {
	Data []npsPark `json:"data"`
}

// ParksByState lists parks whose states include stateCode. limit <= 0
// uses the API default of 50.
func (c *NPSClient) ParksByState(ctx context.Context, stateCode string, limit int) ([]ParkRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{}
	q.Set("stateCode", stateCode)
	q.Set("limit", strconv.Itoa(limit))

	header := http.Header{}
	header.Set("X-Api-Key", c.apiKey)

	var resp npsParksResponse
	if err := c.src.getJSON(ctx, c.baseURL+"parks?"+q.Encode(), header, &resp); err != nil {
		return nil, err
	}

	parks := make([]ParkRecord, 0, len(resp.Data))
	for _, p := range resp.Data {
		parks = append(parks, ParkRecord{
			Code:        p.ParkCode,
			Name:        p.FullName,
			States:      p.States,
			Description: p.Description,
			URL:         p.URL,
			Latitude:    p.Latitude.v,
			Longitude:   p.Longitude.v,
		})
	}
	return parks, nil
}
