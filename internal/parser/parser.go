// Package parser turns GPX documents into routes: ordered track points,
// standalone waypoints and derived metadata.
package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/tkrajina/gpxgo/gpx"
	"golang.org/x/net/html/charset"

	"github.com/starford/gpx2maps/internal/apperr"
	"github.com/starford/gpx2maps/internal/geo"
	"github.com/starford/gpx2maps/internal/models"
)

// DefaultName is used when a document declares no name anywhere.
const DefaultName = "Unnamed Route"

var errNoPoints = errors.New("document contains no points")

// ParseError reports a malformed GPX document or one without any points.
type ParseError struct {
	Source string // file path or other origin, may be empty
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse gpx: %v", e.Err)
	}
	return fmt.Sprintf("parse gpx %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes every ParseError match apperr.ErrInvalidGPX.
func (e *ParseError) Is(target error) bool {
	return target == apperr.ErrInvalidGPX
}

// ParseFile reads and parses the GPX file at path.
func ParseFile(path string) (*models.Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gpx file: %w", err)
	}
	route, err := parse(data)
	if err != nil {
		return nil, &ParseError{Source: path, Err: err}
	}
	return route, nil
}

// Parse extracts a Route from raw GPX bytes.
func Parse(data []byte) (*models.Route, error) {
	route, err := parse(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return route, nil
}

func parse(data []byte) (*models.Route, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	// gpxgo reads a missing lat or lon attribute as 0.
	if err := checkCoordinateAttrs(data); err != nil {
		return nil, err
	}

	points, err := extractPoints(doc)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, errNoPoints
	}
	markers, err := convertPoints(doc.Waypoints)
	if err != nil {
		return nil, err
	}

	return &models.Route{
		Name:          deriveName(doc),
		Description:   deriveDescription(doc),
		Points:        points,
		Markers:       markers,
		DistanceKm:    geo.Length(points),
		ElevationGain: geo.ElevationGain(points),
		Bounds:        geo.BoundsOf(points),
	}, nil
}

// extractPoints returns track points in document order. Documents without
// tracks fall back to route points, then to standalone waypoints.
func extractPoints(doc *gpx.GPX) ([]models.Waypoint, error) {
	var out []models.Waypoint
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			pts, err := convertPoints(seg.Points)
			if err != nil {
				return nil, err
			}
			out = append(out, pts...)
		}
	}
	if len(out) > 0 {
		return out, nil
	}
	for _, rte := range doc.Routes {
		pts, err := convertPoints(rte.Points)
		if err != nil {
			return nil, err
		}
		out = append(out, pts...)
	}
	if len(out) > 0 {
		return out, nil
	}
	return convertPoints(doc.Waypoints)
}

// convertPoints maps gpxgo points to waypoints, rejecting coordinates that
// are not finite or lie outside lat [-90,90] / lon [-180,180].
func convertPoints(pts []gpx.GPXPoint) ([]models.Waypoint, error) {
	if len(pts) == 0 {
		return nil, nil
	}
	out := make([]models.Waypoint, len(pts))
	for i, p := range pts {
		if !validCoordinate(p.Latitude, 90) || !validCoordinate(p.Longitude, 180) {
			return nil, fmt.Errorf("point %d: invalid coordinate (%v, %v)", i+1, p.Latitude, p.Longitude)
		}
		out[i] = models.Waypoint{
			Lat:         p.Latitude,
			Lon:         p.Longitude,
			Time:        p.Timestamp,
			Name:        p.Name,
			Description: p.Description,
		}
		if p.Elevation.NotNull() {
			out[i].Elevation = p.Elevation.Value()
			out[i].HasElevation = true
		}
	}
	return out, nil
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -limit && v <= limit
}

// checkCoordinateAttrs requires lat and lon on every trkpt, rtept and wpt.
func checkCoordinateAttrs(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.CharsetReader = charset.NewReaderLabel
	for {
		tok, err := dec.Token()
		if err != nil {
			// Syntax problems were already reported by gpxgo.
			return nil
		}
		el, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch el.Name.Local {
		case "trkpt", "rtept", "wpt":
		default:
			continue
		}
		var hasLat, hasLon bool
		for _, a := range el.Attr {
			switch a.Name.Local {
			case "lat":
				hasLat = true
			case "lon":
				hasLon = true
			}
		}
		if !hasLat || !hasLon {
			return fmt.Errorf("<%s> without lat/lon attribute", el.Name.Local)
		}
	}
}

func deriveName(doc *gpx.GPX) string {
	if doc.Name != "" {
		return doc.Name
	}
	if len(doc.Tracks) > 0 && doc.Tracks[0].Name != "" {
		return doc.Tracks[0].Name
	}
	if len(doc.Routes) > 0 && doc.Routes[0].Name != "" {
		return doc.Routes[0].Name
	}
	return DefaultName
}

func deriveDescription(doc *gpx.GPX) string {
	if doc.Description != "" {
		return doc.Description
	}
	if len(doc.Tracks) > 0 && doc.Tracks[0].Description != "" {
		return doc.Tracks[0].Description
	}
	if len(doc.Routes) > 0 {
		return doc.Routes[0].Description
	}
	return ""
}
