// Package storage defines the GPX library file-system abstraction.
package storage

import (
	"regexp"
	"strings"

	"github.com/starford/gpx2maps/internal/models"
)

// Ext is the extension of every library file.
const Ext = ".gpx"

// Provider is the interface for library file operations.
type Provider interface {
	// List returns metadata for every .gpx file under dir (relative to the library root).
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the library root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the library root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the library root).
	Delete(path string) error
}

var unsafeIDRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// RouteFilename returns the library filename for a downloaded route:
// <source>_<route-id>.gpx, with anything outside [A-Za-z0-9._-] replaced.
func RouteFilename(source, routeID string) string {
	id := strings.Trim(unsafeIDRe.ReplaceAllString(routeID, "-"), "-.")
	if id == "" {
		id = "route"
	}
	return strings.ToLower(source) + "_" + id + Ext
}

// SourceOf returns the <source> prefix of a library filename, or "" when the
// name does not follow the <source>_<route-id>.gpx convention.
func SourceOf(name string) string {
	base := name
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	i := strings.Index(base, "_")
	if i <= 0 || !strings.HasSuffix(base, Ext) {
		return ""
	}
	return base[:i]
}
