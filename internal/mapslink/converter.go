package mapslink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"googlemaps.github.io/maps"

	"github.com/starford/gpx2maps/internal/apperr"
	"github.com/starford/gpx2maps/internal/models"
)

// DemoAPIKey is accepted as a credential but never sent to Google.
const DemoAPIKey = "DEMO_API_KEY"

// DirectionsClient is the subset of *maps.Client used for validation.
type DirectionsClient interface {
	Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error)
}

// Result is the outcome of a conversion.
type Result struct {
	URL string `json:"url"`
	// Validated is true when the Directions API returned at least one walking route.
	Validated bool   `json:"validated"`
	Warning   string `json:"warning,omitempty"`
}

// Converter builds a directions link for a route and optionally validates it.
type Converter struct {
	builder  Builder
	apiKey   string
	validate bool
	baseURL  string
	logger   *slog.Logger

	mu     sync.Mutex
	client DirectionsClient
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithBuilder sets the URL builder.
func WithBuilder(b Builder) ConverterOption {
	return func(c *Converter) { c.builder = b }
}

// WithValidation toggles the Directions API check.
func WithValidation(enabled bool) ConverterOption {
	return func(c *Converter) { c.validate = enabled }
}

// WithBaseURL points the Google client at another endpoint.
func WithBaseURL(u string) ConverterOption {
	return func(c *Converter) { c.baseURL = u }
}

// WithDirectionsClient replaces the Google client.
func WithDirectionsClient(dc DirectionsClient) ConverterOption {
	return func(c *Converter) { c.client = dc }
}

// WithLogger sets the logger used for non-fatal validation failures.
func WithLogger(l *slog.Logger) ConverterOption {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewConverter returns a Converter for apiKey. An empty key is rejected with
// apperr.ErrMissingAPIKey so callers fail before any network traffic.
func NewConverter(apiKey string, opts ...ConverterOption) (*Converter, error) {
	if apiKey == "" {
		return nil, apperr.ErrMissingAPIKey
	}
	c := &Converter{apiKey: apiKey, validate: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Convert builds the directions URL for route. Validation problems are logged
// and reported in Result.Warning; only link construction can fail.
func (c *Converter) Convert(ctx context.Context, route *models.Route) (*Result, error) {
	link, err := c.builder.Build(route.Points)
	if err != nil {
		return nil, err
	}
	res := &Result{URL: link}

	if !c.validate || c.apiKey == DemoAPIKey {
		return res, nil
	}

	client, err := c.directionsClient()
	if err != nil {
		res.Warning = fmt.Sprintf("maps client unavailable: %v", err)
		c.logger.Warn("maps client init failed", slog.String("error", err.Error()))
		return res, nil
	}

	sampled := Simplify(route.Points, c.builder.maxPoints())
	req := &maps.DirectionsRequest{
		Origin:      Coord(sampled[0]),
		Destination: Coord(sampled[len(sampled)-1]),
		Mode:        maps.TravelModeWalking,
	}
	for _, p := range sampled[1 : len(sampled)-1] {
		req.Waypoints = append(req.Waypoints, Coord(p))
	}

	routes, _, err := client.Directions(ctx, req)
	switch {
	case err != nil:
		res.Warning = fmt.Sprintf("directions check failed: %v", err)
		c.logger.Warn("directions check failed",
			slog.String("route", route.Name),
			slog.String("error", err.Error()))
	case len(routes) == 0:
		res.Warning = "directions check found no walking route"
		c.logger.Warn("directions check found no route", slog.String("route", route.Name))
	default:
		res.Validated = true
	}
	return res, nil
}

func (c *Converter) directionsClient() (DirectionsClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	opts := []maps.ClientOption{maps.WithAPIKey(c.apiKey)}
	if c.baseURL != "" {
		opts = append(opts, maps.WithBaseURL(c.baseURL))
	}
	mc, err := maps.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	c.client = mc
	return mc, nil
}
