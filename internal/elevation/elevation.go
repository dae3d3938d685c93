// Package elevation back-fills missing track elevations from SRTM tiles.
package elevation

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/tkrajina/go-elevations/geoelevations"

	"github.com/starford/gpx2maps/internal/geo"
	"github.com/starford/gpx2maps/internal/models"
)

// Lookup answers single-point elevation queries. *geoelevations.Srtm implements it.
type Lookup interface {
	GetElevation(client *http.Client, lat, lon float64) (float64, error)
}

// NewSRTM returns an SRTM lookup that downloads tiles on demand with client.
func NewSRTM(client *http.Client) (Lookup, error) {
	if client == nil {
		client = http.DefaultClient
	}
	srtm, err := geoelevations.NewSrtm(client)
	if err != nil {
		return nil, fmt.Errorf("elevation: creating srtm client: %w", err)
	}
	return srtm, nil
}

type pos struct{ lat, lon float64 }

// Enricher fills in elevations the GPX file did not carry.
type Enricher struct {
	lookup Lookup
	client *http.Client
	logger *slog.Logger

	mu    sync.Mutex
	cache map[pos]float64
}

// NewEnricher wraps lookup. Results are cached per coordinate for the
// enricher's lifetime.
func NewEnricher(lookup Lookup, client *http.Client, logger *slog.Logger) *Enricher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Enricher{
		lookup: lookup,
		client: client,
		logger: logger,
		cache:  make(map[pos]float64),
	}
}

// Enrich returns a copy of r where every point and marker lacking an
// elevation has one looked up, and ElevationGain is recomputed. r itself is
// not modified. Failed lookups leave the point without elevation.
func (e *Enricher) Enrich(r *models.Route) *models.Route {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := *r
	out.Points = e.fill(r.Points)
	out.Markers = e.fill(r.Markers)
	out.ElevationGain = geo.ElevationGain(out.Points)
	return &out
}

func (e *Enricher) fill(in []models.Waypoint) []models.Waypoint {
	if in == nil {
		return nil
	}
	out := make([]models.Waypoint, len(in))
	var filled, failed int
	for i, w := range in {
		out[i] = w
		if w.HasElevation {
			continue
		}
		ele, err := e.elevation(w.Lat, w.Lon)
		if err != nil {
			failed++
			continue
		}
		out[i].Elevation, out[i].HasElevation = ele, true
		filled++
	}
	if filled > 0 || failed > 0 {
		e.logger.Debug("elevation: back-filled",
			slog.Int("filled", filled),
			slog.Int("failed", failed))
	}
	return out
}

func (e *Enricher) elevation(lat, lon float64) (float64, error) {
	p := pos{lat, lon}
	if v, ok := e.cache[p]; ok {
		return v, nil
	}
	v, err := e.lookup.GetElevation(e.client, lat, lon)
	if err != nil {
		return 0, err
	}
	e.cache[p] = v
	return v, nil
}
