package index

import "github.com/starford/gpx2maps/internal/models"

// RouteIndex defines the index operations used by the route service.
type RouteIndex interface {
	UpsertRoute(e models.LibraryEntry, description string) error
	DeleteRoute(path string) error
	GetRoute(path string) (*models.LibraryEntry, error)
	GetChecksum(path string) (string, error)
	ListRoutes(limit, offset int, source, sort string) ([]models.LibraryEntry, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ RouteIndex = (*DB)(nil)
