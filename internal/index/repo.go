package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/gpx2maps/internal/apperr"
	"github.com/starford/gpx2maps/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	Path       string  `json:"path"`
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distance_km"`
	Snippet    string  `json:"snippet"`
}

const routeColumns = `path, name, source, points, distance_km, elevation_gain, checksum, size, updated_at`

var sortClauses = map[string]string{
	"":           "updated_at DESC",
	"updated_at": "updated_at DESC",
	"name":       "name COLLATE NOCASE ASC",
	"distance":   "distance_km ASC",
	"path":       "path ASC",
}

// UpsertRoute inserts or replaces a library entry and its FTS row within a transaction.
func (db *DB) UpsertRoute(e models.LibraryEntry, description string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO routes (path, name, description, source, points, distance_km, elevation_gain, checksum, size, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name           = excluded.name,
			description    = excluded.description,
			source         = excluded.source,
			points         = excluded.points,
			distance_km    = excluded.distance_km,
			elevation_gain = excluded.elevation_gain,
			checksum       = excluded.checksum,
			size           = excluded.size,
			updated_at     = excluded.updated_at
	`, e.Path, e.Name, description, e.Source, e.Points, e.DistanceKm, e.ElevationGain, e.Checksum, e.Size, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert route: %w", err)
	}

	if err := ftsUpsert(tx, e.Path, e.Name, description, e.Source); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteRoute removes a library entry and its FTS row.
func (db *DB) DeleteRoute(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM routes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete route: %w", err)
	}
	return tx.Commit()
}

// GetRoute returns the entry at path or apperr.ErrNotFound.
func (db *DB) GetRoute(path string) (*models.LibraryEntry, error) {
	row := db.conn.QueryRow(`SELECT `+routeColumns+` FROM routes WHERE path = ?`, path)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get route: %w", err)
	}
	return e, nil
}

// GetChecksum returns the stored checksum for a route, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM routes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// ListRoutes returns a page of entries, optionally restricted to one source,
// together with the total number of matching entries.
func (db *DB) ListRoutes(limit, offset int, source, sort string) ([]models.LibraryEntry, int, error) {
	order, ok := sortClauses[sort]
	if !ok {
		return nil, 0, fmt.Errorf("index: unknown sort %q", sort)
	}
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	var args []any
	if source != "" {
		where = " WHERE source = ?"
		args = append(args, strings.ToLower(source))
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM routes`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count routes: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+routeColumns+` FROM routes`+where+
		` ORDER BY `+order+` LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list routes: %w", err)
	}
	defer rows.Close()

	var out []models.LibraryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

// AllChecksums returns path → checksum for every indexed route.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM routes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.LibraryEntry, error) {
	var e models.LibraryEntry
	if err := s.Scan(&e.Path, &e.Name, &e.Source, &e.Points, &e.DistanceKm,
		&e.ElevationGain, &e.Checksum, &e.Size, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
