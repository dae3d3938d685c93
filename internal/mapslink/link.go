// Package mapslink builds Google Maps URLs from ordered waypoint sequences and
// optionally checks them against the Directions API.
package mapslink

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/starford/gpx2maps/internal/apperr"
	"github.com/starford/gpx2maps/internal/geo"
	"github.com/starford/gpx2maps/internal/models"
)

const (
	DirectionsBaseURL = "https://www.google.com/maps/dir"
	StaticMapBaseURL  = "https://maps.googleapis.com/maps/api/staticmap"

	DefaultZoom      = 12
	DefaultMaxPoints = 25

	// walkingModeData selects pedestrian routing in the directions view.
	walkingModeData = "!4m2!4m1!3e2"

	staticMapMaxPoints = 50
)

// InsufficientPointsError is returned when fewer than two waypoints are given.
type InsufficientPointsError struct {
	Got int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("maps link needs at least 2 waypoints, got %d", e.Got)
}

// Is makes every InsufficientPointsError match apperr.ErrInsufficientPoints.
func (e *InsufficientPointsError) Is(target error) bool {
	return target == apperr.ErrInsufficientPoints
}

// Builder turns waypoints into a directions URL. The zero value uses
// DefaultZoom and DefaultMaxPoints.
type Builder struct {
	Zoom      int
	MaxPoints int
}

func (b Builder) zoom() int {
	if b.Zoom <= 0 {
		return DefaultZoom
	}
	return b.Zoom
}

func (b Builder) maxPoints() int {
	if b.MaxPoints < 2 {
		return DefaultMaxPoints
	}
	return b.MaxPoints
}

// Build returns the directions URL for points. The path lists every sampled
// waypoint in order, closes the loop back to the first one and ends with the
// map centre, zoom and walking-mode parameters.
func (b Builder) Build(points []models.Waypoint) (string, error) {
	if len(points) < 2 {
		return "", &InsufficientPointsError{Got: len(points)}
	}
	sampled := Simplify(points, b.maxPoints())
	first, last := sampled[0], sampled[len(sampled)-1]

	var sb strings.Builder
	sb.WriteString(DirectionsBaseURL)
	for _, p := range sampled {
		sb.WriteByte('/')
		sb.WriteString(Coord(p))
	}
	if !geo.SamePosition(first, last) {
		sb.WriteByte('/')
		sb.WriteString(Coord(first))
	}
	fmt.Fprintf(&sb, "/@%s,%dz/data=%s", Coord(first), b.zoom(), walkingModeData)
	return sb.String(), nil
}

// StaticMapURL returns a Static Maps API image URL drawing points as a blue path.
func (b Builder) StaticMapURL(points []models.Waypoint, width, height int, apiKey string) (string, error) {
	if len(points) < 2 {
		return "", &InsufficientPointsError{Got: len(points)}
	}
	sampled := Simplify(points, staticMapMaxPoints)
	coords := make([]string, len(sampled))
	for i, p := range sampled {
		coords[i] = Coord(p)
	}

	q := url.Values{}
	q.Set("size", fmt.Sprintf("%dx%d", width, height))
	q.Set("path", "color:0x0000ff|weight:3|"+strings.Join(coords, "|"))
	if apiKey != "" {
		q.Set("key", apiKey)
	}
	return StaticMapBaseURL + "?" + q.Encode(), nil
}

// Simplify picks at most max evenly spaced points, always keeping the first
// and the last. Order is preserved and the input is never modified.
func Simplify(points []models.Waypoint, max int) []models.Waypoint {
	n := len(points)
	if n <= max || max < 2 {
		out := make([]models.Waypoint, n)
		copy(out, points)
		return out
	}
	out := make([]models.Waypoint, max)
	for i := 0; i < max; i++ {
		out[i] = points[i*(n-1)/(max-1)]
	}
	return out
}

// Coord formats a waypoint as "lat,lon" using the shortest exact decimals.
func Coord(p models.Waypoint) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}
