// Package models defines the domain types for gpx2maps.
package models

import "time"

// Waypoint is a single geographic coordinate within a track.
// Elevation and Time are optional; HasElevation reports whether Elevation is set.
type Waypoint struct {
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	Elevation    float64   `json:"ele,omitempty"`
	HasElevation bool      `json:"-"`
	Time         time.Time `json:"time,omitempty"`
	Name         string    `json:"name,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// Bounds is the bounding box of a route.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Route is a named, ordered collection of waypoints with derived metadata.
// Points define the travel path; Markers are the document's standalone <wpt> elements.
type Route struct {
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Points        []Waypoint `json:"points"`
	Markers       []Waypoint `json:"markers,omitempty"`
	DistanceKm    float64    `json:"distance_km"`
	ElevationGain float64    `json:"elevation_gain_m"`
	Bounds        Bounds     `json:"bounds"`
}

// PointCount returns the number of track points.
func (r *Route) PointCount() int {
	return len(r.Points)
}

// Listing is a route found on a third-party site.
type Listing struct {
	Title      string  `json:"title"`
	DistanceKm float64 `json:"distance_km,omitempty"`
	// HasDistance is false when the site did not publish a parsable distance.
	HasDistance bool   `json:"-"`
	URL         string `json:"url"`
	Source      string `json:"source"`
}

// FileMetadata is a lightweight representation of a GPX file in the library.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LibraryEntry is an indexed GPX file.
type LibraryEntry struct {
	Path          string    `json:"path"`
	Name          string    `json:"name"`
	Source        string    `json:"source"`
	Points        int       `json:"points"`
	DistanceKm    float64   `json:"distance_km"`
	ElevationGain float64   `json:"elevation_gain_m"`
	Checksum      string    `json:"checksum"`
	Size          int64     `json:"size"`
	UpdatedAt     time.Time `json:"updated_at"`
}
