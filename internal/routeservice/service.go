// Package routeservice implements the library operations shared by the CLI,
// the REST API and the MCP server.
package routeservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/starford/gpx2maps/internal/apperr"
	"github.com/starford/gpx2maps/internal/checksum"
	"github.com/starford/gpx2maps/internal/export"
	"github.com/starford/gpx2maps/internal/index"
	"github.com/starford/gpx2maps/internal/mapslink"
	"github.com/starford/gpx2maps/internal/models"
	"github.com/starford/gpx2maps/internal/parser"
	"github.com/starford/gpx2maps/internal/render"
	"github.com/starford/gpx2maps/internal/scraper"
	"github.com/starford/gpx2maps/internal/storage"
)

// RouteDetail is the full representation of a library route.
type RouteDetail struct {
	Path     string        `json:"path"`
	Source   string        `json:"source,omitempty"`
	Checksum string        `json:"checksum"`
	Size     int64         `json:"size"`
	Route    *models.Route `json:"route"`
}

// Summary is a compact description of a route without its point list.
type Summary struct {
	Path          string          `json:"path"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Points        int             `json:"points"`
	Markers       []string        `json:"markers,omitempty"`
	DistanceKm    float64         `json:"distance_km"`
	ElevationGain float64         `json:"elevation_gain_m"`
	Bounds        models.Bounds   `json:"bounds"`
	Start         models.Waypoint `json:"start"`
	End           models.Waypoint `json:"end"`
}

// SourceResult holds one source's answer to a search. Err is set when the
// source failed; other sources are unaffected.
type SourceResult struct {
	Source   string           `json:"source"`
	Listings []models.Listing `json:"listings"`
	Err      error            `json:"-"`
}

// Enricher adds data the GPX file lacks.
type Enricher interface {
	Enrich(r *models.Route) *models.Route
}

// Service coordinates the library store, the index, route sources and the
// maps converter.
type Service struct {
	store     storage.Provider
	db        index.RouteIndex
	sources   *scraper.Registry
	converter *mapslink.Converter
	builder   mapslink.Builder
	enricher  Enricher
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSources enables searching and downloading from websites.
func WithSources(r *scraper.Registry) Option {
	return func(s *Service) { s.sources = r }
}

// WithConverter enables maps link conversion.
func WithConverter(c *mapslink.Converter) Option {
	return func(s *Service) { s.converter = c }
}

// WithBuilder sets the link builder used by Link and QR codes.
func WithBuilder(b mapslink.Builder) Option {
	return func(s *Service) { s.builder = b }
}

// WithEnricher runs every loaded route through e.
func WithEnricher(e Enricher) Option {
	return func(s *Service) { s.enricher = e }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new route service.
func NewService(store storage.Provider, db index.RouteIndex, opts ...Option) *Service {
	s := &Service{store: store, db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetRoute reads and parses a library file.
func (s *Service) GetRoute(_ context.Context, p string) (*RouteDetail, error) {
	if err := checkPath(p); err != nil {
		return nil, err
	}
	data, err := s.read(p)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(p, data)
}

// ImportGPX validates data, writes it to the library under p and indexes it.
// An existing file is only replaced when overwrite is set.
func (s *Service) ImportGPX(_ context.Context, p string, data []byte, overwrite bool) (*RouteDetail, error) {
	if err := checkPath(p); err != nil {
		return nil, err
	}
	if _, err := parser.Parse(data); err != nil {
		return nil, err
	}
	if !overwrite {
		if _, err := s.store.Read(p); err == nil {
			return nil, fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, p)
		}
	}
	if err := s.store.Write(p, data); err != nil {
		return nil, err
	}
	if err := s.IndexFile(p, data); err != nil {
		return nil, err
	}
	s.logger.Info("route imported", slog.String("path", p), slog.Int("bytes", len(data)))
	return s.buildDetail(p, data)
}

// Download fetches a route from its website and imports it. name overrides
// the <source>_<route-id>.gpx filename.
func (s *Service) Download(ctx context.Context, rawURL, name string, overwrite bool) (*RouteDetail, error) {
	if s.sources == nil {
		return nil, fmt.Errorf("%w: no route sources configured", apperr.ErrUnsupportedSource)
	}
	src, err := s.sources.Resolve(rawURL)
	if err != nil {
		return nil, err
	}
	d, err := src.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	p := d.Filename
	if name != "" {
		p = EnsureExt(name)
	}
	return s.ImportGPX(ctx, p, d.Data, overwrite)
}

// SearchSources queries the named source ("all" for every source) and
// returns one result per source in registry order.
func (s *Service) SearchSources(ctx context.Context, source string, q scraper.Query) ([]SourceResult, error) {
	if s.sources == nil {
		return nil, fmt.Errorf("%w: no route sources configured", apperr.ErrUnsupportedSource)
	}
	srcs, err := s.sources.Select(source)
	if err != nil {
		return nil, err
	}
	out := make([]SourceResult, 0, len(srcs))
	for _, src := range srcs {
		listings, err := src.Search(ctx, q)
		if err != nil {
			s.logger.Warn("source search failed",
				slog.String("source", src.Name()),
				slog.String("error", err.Error()))
		}
		out = append(out, SourceResult{Source: src.Name(), Listings: nonNilSlice(listings), Err: err})
	}
	return out, nil
}

// DeleteRoute removes a route from the library and the index.
func (s *Service) DeleteRoute(_ context.Context, p string) error {
	if err := checkPath(p); err != nil {
		return err
	}
	if err := s.store.Delete(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteRoute(p)
}

// ListRoutes returns a page of indexed routes.
func (s *Service) ListRoutes(_ context.Context, limit, offset int, source, sort string) ([]models.LibraryEntry, int, error) {
	entries, total, err := s.db.ListRoutes(limit, offset, source, sort)
	if err != nil {
		return nil, 0, err
	}
	return nonNilSlice(entries), total, nil
}

// SearchLibrary delegates full-text search to the index.
func (s *Service) SearchLibrary(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(res), nil
}

// Convert builds the Google Maps link for a library route.
func (s *Service) Convert(ctx context.Context, p string) (*mapslink.Result, error) {
	if s.converter == nil {
		return nil, apperr.ErrMissingAPIKey
	}
	d, err := s.GetRoute(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.converter.Convert(ctx, d.Route)
}

// Link builds the directions URL for a library route locally. It needs no
// API key and performs no validation.
func (s *Service) Link(ctx context.Context, p string) (string, error) {
	d, err := s.GetRoute(ctx, p)
	if err != nil {
		return "", err
	}
	return s.builder.Build(d.Route.Points)
}

// QRCode renders the directions URL of a library route as a PNG QR code.
func (s *Service) QRCode(ctx context.Context, p string, size int) (string, []byte, error) {
	link, err := s.Link(ctx, p)
	if err != nil {
		return "", nil, err
	}
	img, err := render.QRCode(link, size)
	if err != nil {
		return "", nil, err
	}
	return link, img, nil
}

// GeoJSON exports a library route as a GeoJSON FeatureCollection.
func (s *Service) GeoJSON(ctx context.Context, p string) ([]byte, error) {
	d, err := s.GetRoute(ctx, p)
	if err != nil {
		return nil, err
	}
	return export.GeoJSON(d.Route)
}

// Summarize returns the route's metadata without its point list.
func (s *Service) Summarize(ctx context.Context, p string) (*Summary, error) {
	d, err := s.GetRoute(ctx, p)
	if err != nil {
		return nil, err
	}
	return Summarize(p, d.Route), nil
}

// Summarize builds a Summary for r.
func Summarize(p string, r *models.Route) *Summary {
	sum := &Summary{
		Path:          p,
		Name:          r.Name,
		Description:   r.Description,
		Points:        r.PointCount(),
		DistanceKm:    r.DistanceKm,
		ElevationGain: r.ElevationGain,
		Bounds:        r.Bounds,
	}
	if n := len(r.Points); n > 0 {
		sum.Start, sum.End = r.Points[0], r.Points[n-1]
	}
	for _, m := range r.Markers {
		if m.Name != "" {
			sum.Markers = append(sum.Markers, m.Name)
		}
	}
	return sum
}

// IndexFile parses data and upserts it into the index.
func (s *Service) IndexFile(p string, data []byte) error {
	return index.IndexFile(s.db, p, data, time.Now())
}

// EnsureExt appends .gpx unless name already carries it.
func EnsureExt(name string) string {
	if strings.EqualFold(path.Ext(name), storage.Ext) {
		return name
	}
	return name + storage.Ext
}

func (s *Service) read(p string) ([]byte, error) {
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Service) buildDetail(p string, data []byte) (*RouteDetail, error) {
	r, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	if s.enricher != nil {
		r = s.enricher.Enrich(r)
	}
	return &RouteDetail{
		Path:     p,
		Source:   storage.SourceOf(p),
		Checksum: checksum.Sum(data),
		Size:     int64(len(data)),
		Route:    r,
	}, nil
}

func checkPath(p string) error {
	switch {
	case p == "":
		return fmt.Errorf("%w: path is required", apperr.ErrInvalidPath)
	case !strings.EqualFold(path.Ext(p), storage.Ext):
		return fmt.Errorf("%w: %s is not a %s file", apperr.ErrInvalidPath, p, storage.Ext)
	case strings.HasPrefix(p, "/") || strings.Contains("/"+p+"/", "/../"):
		return fmt.Errorf("%w: %s escapes the library", apperr.ErrInvalidPath, p)
	}
	return nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
