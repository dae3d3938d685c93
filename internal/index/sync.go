package index

import (
	"log/slog"
	"strings"
	"time"

	"github.com/starford/gpx2maps/internal/checksum"
	"github.com/starford/gpx2maps/internal/models"
	"github.com/starford/gpx2maps/internal/parser"
	"github.com/starford/gpx2maps/internal/storage"
)

// Sync walks the library and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
//
// Files that fail to parse are logged and skipped.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	var indexed, removed int
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		indexed++
		logger.Debug("sync: indexed", slog.String("path", m.Path))
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteRoute(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	logger.Info("sync: done",
		slog.Int("files", len(metas)),
		slog.Int("indexed", indexed),
		slog.Int("removed", removed))
	return nil
}

// IndexFile parses GPX data and upserts it into the index under path.
func IndexFile(db RouteIndex, path string, data []byte, modTime time.Time) error {
	route, err := parser.Parse(data)
	if err != nil {
		return err
	}
	return db.UpsertRoute(EntryFor(path, data, route, modTime), route.Description)
}

// EntryFor builds the index row for a parsed library file.
func EntryFor(path string, data []byte, route *models.Route, modTime time.Time) models.LibraryEntry {
	if modTime.IsZero() {
		modTime = time.Now()
	}
	return models.LibraryEntry{
		Path:          path,
		Name:          route.Name,
		Source:        strings.ToLower(storage.SourceOf(path)),
		Points:        route.PointCount(),
		DistanceKm:    route.DistanceKm,
		ElevationGain: route.ElevationGain,
		Checksum:      checksum.Sum(data),
		Size:          int64(len(data)),
		UpdatedAt:     modTime.UTC(),
	}
}
