// Package geo holds the great-circle arithmetic shared by the parser, the
// elevation enricher and the renderers.
package geo

import (
	"math"

	"github.com/starford/gpx2maps/internal/models"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometres between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Length is the sum of distances between consecutive points, in kilometres.
func Length(points []models.Waypoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Haversine(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
	}
	return total
}

// ElevationGain sums the positive elevation deltas between consecutive points
// that both carry an elevation.
func ElevationGain(points []models.Waypoint) float64 {
	var gain float64
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if !prev.HasElevation || !cur.HasElevation {
			continue
		}
		if d := cur.Elevation - prev.Elevation; d > 0 {
			gain += d
		}
	}
	return gain
}

// BoundsOf returns the bounding box of points. The zero Bounds is returned for
// an empty slice.
func BoundsOf(points []models.Waypoint) models.Bounds {
	if len(points) == 0 {
		return models.Bounds{}
	}
	b := models.Bounds{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLon: points[0].Lon, MaxLon: points[0].Lon,
	}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return b
}

// SamePosition reports whether two waypoints share coordinates.
func SamePosition(a, b models.Waypoint) bool {
	return a.Lat == b.Lat && a.Lon == b.Lon
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
