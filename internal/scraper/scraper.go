// Package scraper finds hiking routes on third-party websites and downloads
// their GPX tracks.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/starford/gpx2maps/internal/apperr"
	"github.com/starford/gpx2maps/internal/models"
)

// DefaultUserAgent is a desktop Chrome string; some sites refuse unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Query narrows a search.
type Query struct {
	Location string
	// MaxDistanceKm drops listings longer than this; a negative value
	// disables the limit. Listings without a known distance are kept.
	MaxDistanceKm float64
	// Prefix, when set, must be a prefix of the listing title.
	Prefix string
}

// Download is a fetched and validated GPX document.
type Download struct {
	Source   string
	RouteID  string
	Filename string
	Data     []byte
	Route    *models.Route
}

// Source is a website that publishes routes.
type Source interface {
	Name() string
	// Label is the display name, e.g. "RouteYou".
	Label() string
	Search(ctx context.Context, q Query) ([]models.Listing, error)
	Download(ctx context.Context, rawURL string) (*Download, error)
	// Handles reports whether host belongs to this source.
	Handles(host string) bool
}

// Config configures the built-in sources.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// Offline serves the bundled sample catalog instead of hitting the network.
	Offline bool
	// BaseURLs overrides a source's base URL, keyed by source name.
	BaseURLs map[string]string
}

// Registry holds the configured sources in search order.
type Registry struct {
	sources []Source
}

// NewRegistry wires the RouteYou, Wikiloc and Malmedy Tourism sources.
func NewRegistry(cfg Config, logger *slog.Logger) *Registry {
	c := newClient(cfg.UserAgent, cfg.Timeout, logger)
	var out []Source
	for _, site := range Sites() {
		if u, ok := cfg.BaseURLs[site.Name]; ok && u != "" {
			site.BaseURL = strings.TrimRight(u, "/")
		}
		out = append(out, &SiteSource{site: site, client: c, offline: cfg.Offline, logger: logger})
	}
	return NewRegistryOf(out...)
}

// NewRegistryOf builds a registry from explicit sources.
func NewRegistryOf(sources ...Source) *Registry {
	return &Registry{sources: sources}
}

// Sources returns all registered sources.
func (r *Registry) Sources() []Source {
	return r.sources
}

// Names lists the registered source names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		names = append(names, s.Name())
	}
	return names
}

// Select returns the source called name, or every source for "all" or "".
func (r *Registry) Select(name string) ([]Source, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "all" {
		return r.sources, nil
	}
	for _, s := range r.sources {
		if s.Name() == name {
			return []Source{s}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s (choose from %s or all)", apperr.ErrUnsupportedSource, name, strings.Join(r.Names(), ", "))
}

// Resolve picks the source whose host matches rawURL exactly or as a
// dot-separated suffix.
func (r *Registry) Resolve(rawURL string) (Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("scraper: parse url: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, fmt.Errorf("scraper: url has no host: %s", rawURL)
	}
	for _, s := range r.sources {
		if s.Handles(host) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", apperr.ErrUnsupportedSource, host)
}

// Filter keeps listings whose title starts with q.Prefix (when set) and
// whose distance does not exceed q.MaxDistanceKm. Listings without a known
// distance are kept.
func Filter(listings []models.Listing, q Query) []models.Listing {
	var out []models.Listing
	for _, l := range listings {
		if q.Prefix != "" && !strings.HasPrefix(l.Title, q.Prefix) {
			continue
		}
		if l.HasDistance && q.MaxDistanceKm >= 0 && l.DistanceKm > q.MaxDistanceKm {
			continue
		}
		out = append(out, l)
	}
	return out
}

func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
