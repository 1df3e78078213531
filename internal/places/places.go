// Package places wraps the geocoding/places provider used for venue
// address search.
package places

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// Result is a single place match
type Result struct {
	PlaceID string  `json:"place_id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Client is the places provider boundary
type Client interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// GoogleClient implements Client against the Google Places API
type GoogleClient struct {
	c *maps.Client
}

// NewGoogleClient creates a Google-backed places client
func NewGoogleClient(apiKey string) (*GoogleClient, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create places client: %w", err)
	}
	return &GoogleClient{c: c}, nil
}

// Search runs a free-text place search
func (g *GoogleClient) Search(ctx context.Context, query string) ([]Result, error) {
	resp, err := g.c.TextSearch(ctx, &maps.TextSearchRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("places text search: %w", err)
	}

	results := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, Result{
			PlaceID: r.PlaceID,
			Name:    r.Name,
			Address: r.FormattedAddress,
			Lat:     r.Geometry.Location.Lat,
			Lng:     r.Geometry.Location.Lng,
		})
	}
	return results, nil
}
