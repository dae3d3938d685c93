// Package export converts routes into interchange formats.
package export

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/starford/gpx2maps/internal/models"
)

// FeatureCollection returns the route as a LineString feature followed by one
// Point feature per marker. Coordinates are [lon, lat]; elevations travel in
// properties only.
func FeatureCollection(r *models.Route) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	line := make(orb.LineString, 0, len(r.Points))
	for _, p := range r.Points {
		line = append(line, orb.Point{p.Lon, p.Lat})
	}
	track := geojson.NewFeature(line)
	track.Properties["kind"] = "track"
	track.Properties["name"] = r.Name
	if r.Description != "" {
		track.Properties["description"] = r.Description
	}
	track.Properties["points"] = len(r.Points)
	track.Properties["distance_km"] = r.DistanceKm
	track.Properties["elevation_gain_m"] = r.ElevationGain
	if len(r.Points) > 0 {
		b := line.Bound()
		track.BBox = geojson.NewBBox(b)
	}
	fc.Append(track)

	for _, m := range r.Markers {
		f := geojson.NewFeature(orb.Point{m.Lon, m.Lat})
		f.Properties["kind"] = "marker"
		if m.Name != "" {
			f.Properties["name"] = m.Name
		}
		if m.Description != "" {
			f.Properties["description"] = m.Description
		}
		if m.HasElevation {
			f.Properties["ele"] = m.Elevation
		}
		fc.Append(f)
	}
	return fc
}

// GeoJSON marshals FeatureCollection(r).
func GeoJSON(r *models.Route) ([]byte, error) {
	data, err := FeatureCollection(r).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("export: marshal geojson: %w", err)
	}
	return data, nil
}
