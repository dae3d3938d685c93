package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/starford/gpx2maps/internal/models"
	"github.com/starford/gpx2maps/internal/parser"
	"github.com/starford/gpx2maps/internal/storage"
)

// Site describes how to search and download on one website.
type Site struct {
	Name  string // filename prefix and CLI name
	Label string // human-readable source name
	// BaseURL has no trailing slash.
	BaseURL    string
	SearchPath string
	// QueryParam carries the location; empty means the search page takes none.
	QueryParam string

	ItemSelector     string
	TitleSelector    string
	LinkSelector     string
	DistanceSelector string

	// IDPattern's first group is the route id within a route URL.
	IDPattern *regexp.Regexp

	Samples   []Sample
	SampleGPX string
}

// SourceNames lists the built-in site names in search order.
func SourceNames() []string {
	sites := Sites()
	names := make([]string, len(sites))
	for i, s := range sites {
		names[i] = s.Name
	}
	return names
}

// Sites returns the built-in site definitions.
func Sites() []Site {
	return []Site{
		{
			Name:             "routeyou",
			Label:            "RouteYou",
			BaseURL:          "https://www.routeyou.com",
			SearchPath:       "/en-be/location/walk/search",
			QueryParam:       "q",
			ItemSelector:     ".route-list .route, .searchResult",
			TitleSelector:    ".route-title, h3",
			LinkSelector:     "a[href*='/route/view/']",
			DistanceSelector: ".route-distance, .distance",
			IDPattern:        regexp.MustCompile(`/route/view/([^/?#]+)`),
			Samples:          routeYouSamples,
			SampleGPX:        malmedyLoopGPX,
		},
		{
			Name:             "wikiloc",
			Label:            "Wikiloc",
			BaseURL:          "https://www.wikiloc.com",
			SearchPath:       "/wikiloc/find.do",
			QueryParam:       "q",
			ItemSelector:     ".trail-list__item, .trail-card",
			TitleSelector:    ".trail-title, h3",
			LinkSelector:     "a[href*='id=']",
			DistanceSelector: ".trail-data__distance, .distance",
			IDPattern:        regexp.MustCompile(`id=([^&#]+)`),
			Samples:          wikilocSamples,
			SampleGPX:        botrangeLoopGPX,
		},
		{
			Name:             "malmedy",
			Label:            "Malmedy Tourism",
			BaseURL:          "https://www.malmedy-tourisme.be",
			SearchPath:       "/en/type-a-pied/signposted-walks/",
			ItemSelector:     ".walk, article",
			TitleSelector:    ".walk-title, h2, h3",
			LinkSelector:     "a[href*='/signposted-walks/']",
			DistanceSelector: ".walk-distance, .distance",
			IDPattern:        regexp.MustCompile(`/signposted-walks/([^/?#]+)`),
			Samples:          malmedySamples,
			SampleGPX:        malmedyLoopGPX,
		},
	}
}

// SiteSource is a Source driven by a Site definition.
type SiteSource struct {
	site    Site
	client  *client
	offline bool
	logger  *slog.Logger
}

var _ Source = (*SiteSource)(nil)

// NewSiteSource builds a source for site. Offline sources never touch the network.
func NewSiteSource(site Site, cfg Config, logger *slog.Logger) *SiteSource {
	return &SiteSource{
		site:    site,
		client:  newClient(cfg.UserAgent, cfg.Timeout, logger),
		offline: cfg.Offline,
		logger:  logger,
	}
}

func (s *SiteSource) Name() string { return s.site.Name }

// Label returns the site's display name.
func (s *SiteSource) Label() string { return s.site.Label }

func (s *SiteSource) Handles(host string) bool {
	u, err := url.Parse(s.site.BaseURL)
	if err != nil {
		return false
	}
	domain := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return hostMatches(strings.ToLower(host), domain)
}

// RouteID extracts the route id from a route URL.
func (s *SiteSource) RouteID(rawURL string) (string, error) {
	m := s.site.IDPattern.FindStringSubmatch(rawURL)
	if m == nil || m[1] == "" {
		return "", fmt.Errorf("scraper: could not extract %s route id from %s", s.site.Label, rawURL)
	}
	if id, err := url.QueryUnescape(m[1]); err == nil {
		return id, nil
	}
	return m[1], nil
}

func (s *SiteSource) Search(ctx context.Context, q Query) ([]models.Listing, error) {
	if s.offline {
		return Filter(s.sampleListings(), q), nil
	}

	searchURL := s.site.BaseURL + s.site.SearchPath
	if s.site.QueryParam != "" && q.Location != "" {
		searchURL += "?" + url.Values{s.site.QueryParam: {q.Location}}.Encode()
	}
	p, err := s.client.get(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	listings, err := s.parseListings(p)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("scraper: listings parsed",
		slog.String("source", s.site.Name),
		slog.Int("count", len(listings)))
	return Filter(listings, q), nil
}

func (s *SiteSource) parseListings(p *page) ([]models.Listing, error) {
	r, err := p.htmlReader()
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("scraper: parse %s: %w", p.URL, err)
	}
	base, _ := url.Parse(p.URL)

	seen := make(map[string]struct{})
	var out []models.Listing
	doc.Find(s.site.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		link := item.Find(s.site.LinkSelector).First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		abs := resolve(base, href)
		if _, dup := seen[abs]; dup {
			return
		}

		title := collapseSpace(item.Find(s.site.TitleSelector).First().Text())
		if title == "" {
			title = collapseSpace(link.Text())
		}
		if title == "" {
			return
		}
		seen[abs] = struct{}{}

		l := models.Listing{Title: title, URL: abs, Source: s.site.Label}
		if km, ok := parseDistance(item.Find(s.site.DistanceSelector).First().Text()); ok {
			l.DistanceKm, l.HasDistance = km, true
		}
		out = append(out, l)
	})
	return out, nil
}

func (s *SiteSource) Download(ctx context.Context, rawURL string) (*Download, error) {
	id, err := s.RouteID(rawURL)
	if err != nil {
		return nil, err
	}

	var data []byte
	if s.offline {
		data = []byte(fmt.Sprintf(s.site.SampleGPX, "DEMO "+s.site.Label+" Route (SAMPLE)"))
	} else {
		data, err = s.fetchGPX(ctx, rawURL)
		if err != nil {
			return nil, err
		}
	}

	route, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scraper: %s returned invalid gpx: %w", rawURL, err)
	}
	return &Download{
		Source:   s.site.Name,
		RouteID:  id,
		Filename: storage.RouteFilename(s.site.Name, id),
		Data:     data,
		Route:    route,
	}, nil
}

var errNoGPXLink = errors.New("scraper: no gpx link on page")

// fetchGPX returns the route page itself when it is GPX, otherwise follows
// the first GPX link on it.
func (s *SiteSource) fetchGPX(ctx context.Context, rawURL string) ([]byte, error) {
	p, err := s.client.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if p.isGPX() {
		return p.Body, nil
	}

	r, err := p.htmlReader()
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("scraper: parse %s: %w", p.URL, err)
	}
	href := gpxLink(doc)
	if href == "" {
		return nil, fmt.Errorf("%w: %s", errNoGPXLink, rawURL)
	}
	base, _ := url.Parse(p.URL)
	gp, err := s.client.get(ctx, resolve(base, href))
	if err != nil {
		return nil, err
	}
	return gp.Body, nil
}

func gpxLink(doc *goquery.Document) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		lower := strings.ToLower(href)
		if strings.HasSuffix(lower, ".gpx") || strings.Contains(lower, "format=gpx") || strings.Contains(lower, "/gpx") {
			found = href
			return false
		}
		return true
	})
	return found
}

func (s *SiteSource) sampleListings() []models.Listing {
	out := make([]models.Listing, 0, len(s.site.Samples))
	for _, smp := range s.site.Samples {
		out = append(out, models.Listing{
			Title:       smp.Title,
			DistanceKm:  smp.DistanceKm,
			HasDistance: true,
			URL:         s.site.BaseURL + smp.Path,
			Source:      s.site.Label,
		})
	}
	return out
}

var distanceRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*km`)

// parseDistance reads the first "<n> km" figure in text; decimal commas are accepted.
func parseDistance(text string) (float64, bool) {
	m := distanceRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
