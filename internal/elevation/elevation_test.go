package elevation

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/starford/gpx2maps/internal/models"
)

type fakeLookup struct {
	calls int
	byLat map[float64]float64
}

func (f *fakeLookup) GetElevation(_ *http.Client, lat, _ float64) (float64, error) {
	f.calls++
	v, ok := f.byLat[lat]
	if !ok {
		return 0, errors.New("no tile")
	}
	return v, nil
}

func TestEnrich_FillsMissing(t *testing.T) {
	lookup := &fakeLookup{byLat: map[float64]float64{50.1: 300, 50.3: 330}}
	e := NewEnricher(lookup, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	in := &models.Route{
		Name: "Mixed",
		Points: []models.Waypoint{
			{Lat: 50.1, Lon: 6},
			{Lat: 50.2, Lon: 6, Elevation: 310, HasElevation: true},
			{Lat: 50.3, Lon: 6},
			{Lat: 50.4, Lon: 6},
		},
	}
	out := e.Enrich(in)

	if !out.Points[0].HasElevation || out.Points[0].Elevation != 300 {
		t.Errorf("point 0 = %+v", out.Points[0])
	}
	if out.Points[1].Elevation != 310 {
		t.Errorf("existing elevation overwritten: %+v", out.Points[1])
	}
	if out.Points[3].HasElevation {
		t.Errorf("failed lookup should leave point without elevation: %+v", out.Points[3])
	}
	// 300 → 310 → 330
	if out.ElevationGain != 30 {
		t.Errorf("gain = %v, want 30", out.ElevationGain)
	}
	if in.Points[0].HasElevation {
		t.Error("input route was modified")
	}
	if lookup.calls != 3 {
		t.Errorf("lookup calls = %d, want 3", lookup.calls)
	}
}

func TestEnrich_Caches(t *testing.T) {
	lookup := &fakeLookup{byLat: map[float64]float64{50.1: 300}}
	e := NewEnricher(lookup, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := &models.Route{Points: []models.Waypoint{{Lat: 50.1, Lon: 6}, {Lat: 50.1, Lon: 6}}}
	e.Enrich(r)
	e.Enrich(r)
	if lookup.calls != 1 {
		t.Errorf("lookup calls = %d, want 1", lookup.calls)
	}
}
